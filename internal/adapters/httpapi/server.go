package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/user-accounts-api/internal/app/users"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/searchable"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/tokens"
)

const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers for the /users resource.
type Server struct {
	Users  *users.Service
	Tokens tokens.Issuer
	Idem   idempotency.Store
	Logger *zap.Logger

	now func() time.Time
}

func NewServer(usersSvc *users.Service, issuer tokens.Issuer, idem idempotency.Store) *Server {
	return &Server{
		Users:  usersSvc,
		Tokens: issuer,
		Idem:   idem,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name string `json:"name"`
}

type updatePasswordRequest struct {
	Password    string `json:"password"`
	OldPassword string `json:"oldPassword"`
}

type userResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

type userEnvelope struct {
	Data userResponse `json:"data"`
}

type paginationMeta struct {
	CurrentPage int `json:"currentPage"`
	PerPage     int `json:"perPage"`
	LastPage    int `json:"lastPage"`
	Total       int `json:"total"`
}

type userCollection struct {
	Data []userResponse `json:"data"`
	Meta paginationMeta `json:"meta"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var body signupRequest
	if !s.decode(w, r, &body) || !checkEmail(w, r, body.Email) {
		return
	}

	key := idempotency.Key(strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	var fp idempotency.Fingerprint
	if key != "" && s.Idem != nil {
		bodyHash, err := hashBody(body)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		fp = idempotency.Fingerprint{
			Key:      key,
			Subject:  idempotency.AnonymousSubject,
			Method:   http.MethodPost,
			Route:    "/users",
			BodyHash: bodyHash,
		}
		if s.replay(w, r, fp) {
			return
		}
	}

	out, err := s.Users.Signup(r.Context(), users.SignupInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	resp := userEnvelope{Data: presentUser(out)}
	if fp.Key != "" {
		s.remember(r, fp, http.StatusCreated, resp)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body signinRequest
	if !s.decode(w, r, &body) || !checkEmail(w, r, body.Email) {
		return
	}
	out, err := s.Users.Signin(r.Context(), users.SigninInput{Email: body.Email, Password: body.Password})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	tok, err := s.Tokens.Issue(r.Context(), out.ID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: tok.AccessToken})
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := func(name string) any {
		if !q.Has(name) {
			return nil
		}
		return q.Get(name)
	}
	out, err := s.Users.ListUsers(r.Context(), searchable.Input{
		Page:    raw("page"),
		PerPage: raw("perPage"),
		Sort:    raw("sort"),
		SortDir: raw("sortDir"),
		Filter:  raw("filter"),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	data := make([]userResponse, 0, len(out.Items))
	for _, u := range out.Items {
		data = append(data, presentUser(u))
	}
	writeJSON(w, http.StatusOK, userCollection{
		Data: data,
		Meta: paginationMeta{
			CurrentPage: out.CurrentPage,
			PerPage:     out.PerPage,
			LastPage:    out.LastPage,
			Total:       out.Total,
		},
	})
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	out, err := s.Users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Data: presentUser(out)})
}

func (s *Server) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var body updateUserRequest
	if !s.decode(w, r, &body) {
		return
	}
	out, err := s.Users.UpdateUser(r.Context(), users.UpdateUserInput{
		ID:   chi.URLParam(r, "id"),
		Name: body.Name,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Data: presentUser(out)})
}

func (s *Server) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var body updatePasswordRequest
	if !s.decode(w, r, &body) {
		return
	}
	out, err := s.Users.UpdatePassword(r.Context(), users.UpdatePasswordInput{
		ID:          chi.URLParam(r, "id"),
		Password:    body.Password,
		OldPassword: body.OldPassword,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{Data: presentUser(out)})
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.Users.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into dst. An empty body leaves dst zero-valued so the
// use case reports the missing fields.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large", nil)
			return false
		}
		writeError(w, r, http.StatusBadRequest, codeBadRequest, "malformed JSON body", nil)
		return false
	}
	return true
}

// checkEmail rejects a present but malformed email. Empty values are left to the use case.
func checkEmail(w http.ResponseWriter, r *http.Request, email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return true
	}
	if _, err := openapi_types.Email(email).MarshalJSON(); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, codeValidation, "invalid request", map[string]any{
			"email": "must be a valid email address",
		})
		return false
	}
	return true
}

func presentUser(u users.UserOutput) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Idempotency handling:
// - Replay if same key+route+bodyHash
// - Reject if same key+route with a different bodyHash (409)

// replay writes the response for a request already seen under fp's key and reports
// whether it did.
func (s *Server) replay(w http.ResponseWriter, r *http.Request, fp idempotency.Fingerprint) bool {
	ctx := r.Context()
	metaFP := fp
	metaFP.BodyHash = ""

	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		s.writeAppError(w, r, err)
		return true
	}
	if ok && string(meta.Body) != fp.BodyHash {
		writeError(w, r, http.StatusConflict, codeIdempotencyReuse, "idempotency key reuse with different payload", nil)
		return true
	}
	if !ok {
		if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(fp.BodyHash),
			CreatedAt:   s.now(),
		}); err != nil {
			s.logger().Warn("idempotency put failed", zap.Error(err))
		}
		return false
	}

	rec, ok, err := s.Idem.Get(ctx, fp)
	if err != nil {
		s.writeAppError(w, r, err)
		return true
	}
	if !ok || rec.StatusCode == 0 {
		return false
	}
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
	return true
}

func (s *Server) remember(r *http.Request, fp idempotency.Fingerprint, status int, resp any) {
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	// Encoder output ends with a newline; keep replays byte-identical.
	b = append(b, '\n')
	if err := s.Idem.Put(r.Context(), fp, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.now(),
	}); err != nil {
		s.logger().Warn("idempotency put failed", zap.Error(err))
	}
}

func hashBody(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
