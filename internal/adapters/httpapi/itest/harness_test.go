package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Overland-East-Bay/user-accounts-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/idempotency"
	memuserrepo "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/memory/userrepo"
	pgidempotency "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/postgres/testutil"
	pguserrepo "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/postgres/userrepo"
	"github.com/Overland-East-Bay/user-accounts-api/internal/app/users"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/auth/bcrypthash"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/auth/jwttoken"
	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/config"
	idempotencyport "github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/idempotency"
	userrepoport "github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	clock   *memclock.ManualClock
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	// Wall-clock start keeps issued tokens valid for the real-time verifier below.
	clk := memclock.NewManualClock(time.Now().UTC().Truncate(time.Second))

	var (
		userRepo  userrepoport.Repository
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		postgres_testutil.Truncate(t, pool, "users", "idempotency_keys")
		userRepo = pguserrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		userRepo = memuserrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	tok := jwttoken.New(config.JWTConfig{
		Secret:    "itest-secret",
		ExpiresIn: time.Hour,
		Issuer:    "itest-issuer",
		ClockSkew: time.Minute,
	})
	svc := users.NewService(userRepo, bcrypthash.New(4), clk)
	api := httpapi.NewServer(svc, tok, idemStore)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewAuthMiddleware(tok),
		Metrics:        httpapi.NewMetrics(nil, nil),
		ServiceName:    "itest",
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clock:   clk,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any, hdr map[string]string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

type userBody struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

type userEnvelope struct {
	Data userBody `json:"data"`
}

type userList struct {
	Data []userBody `json:"data"`
	Meta struct {
		CurrentPage int `json:"currentPage"`
		PerPage     int `json:"perPage"`
		LastPage    int `json:"lastPage"`
		Total       int `json:"total"`
	} `json:"meta"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) errorResponse {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
	return got
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
