package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/idempotency"
	memuserrepo "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/userrepo"
	"github.com/Overland-East-Bay/user-accounts-api/internal/app/users"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/auth/jwttoken"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/config"
)

// plainHasher avoids bcrypt cost in handler tests.
type plainHasher struct{}

func (plainHasher) Hash(_ context.Context, plain string) (string, error) { return "h:" + plain, nil }
func (plainHasher) Compare(_ context.Context, plain, hash string) (bool, error) {
	return hash == "h:"+plain, nil
}

type testAPI struct {
	handler http.Handler
	tokens  *jwttoken.Service
	clock   *memclock.ManualClock
	metrics *Metrics
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	tok := jwttoken.NewWithOptions(config.JWTConfig{
		Secret:    "test-secret",
		ExpiresIn: 10 * time.Minute,
		Issuer:    "test-iss",
	}, clk)

	svc := users.NewService(memuserrepo.NewRepo(), plainHasher{}, clk)
	api := NewServer(svc, tok, memidempotency.NewStore())
	metrics := NewMetrics(nil, nil)

	h := NewRouter(api, RouterOptions{
		AuthMiddleware: NewAuthMiddleware(tok),
		Metrics:        metrics,
	})
	return &testAPI{handler: h, tokens: tok, clock: clk, metrics: metrics}
}

func (a *testAPI) bearer(t *testing.T, subject string) string {
	t.Helper()
	tok, err := a.tokens.Issue(context.Background(), subject)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + tok.AccessToken
}

func (a *testAPI) do(t *testing.T, method, path, authz string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signup(t *testing.T, name, email, password string) userResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/users", "", map[string]any{
		"name": name, "email": email, "password": password,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", rec.Code, rec.Body.String())
	}
	return decode[userEnvelope](t, rec).Data
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, rec.Body.String())
	}
	return out
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status=%d want=%d body=%s", rec.Code, status, rec.Body.String())
	}
	er := decode[ErrorResponse](t, rec)
	if er.Error.Code != code {
		t.Fatalf("error.code=%q want=%q body=%s", er.Error.Code, code, rec.Body.String())
	}
	return er
}
