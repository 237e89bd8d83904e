package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/user-accounts-api/internal/app/users"
	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/tokens"
)

const (
	codeUnauthorized     = "UNAUTHORIZED"
	codeNotFound         = "NOT_FOUND"
	codeConflict         = "CONFLICT"
	codeValidation       = "VALIDATION_ERROR"
	codeBadRequest       = "BAD_REQUEST"
	codeInternal         = "INTERNAL"
	codeIdempotencyReuse = "IDEMPOTENCY_KEY_REUSE"
)

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

// ErrorResponse is the error envelope: {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error returned by the application layer to status, code and details.
func statusFor(err error) (int, string, map[string]any) {
	if ae := (*users.Error)(nil); errors.As(err, &ae) {
		return ae.Status, ae.Code, ae.Details
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound, nil
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, codeConflict, nil
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, codeValidation, domain.DetailsOf(err)
	case errors.Is(err, tokens.ErrUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized, nil
	default:
		return http.StatusInternalServerError, codeInternal, nil
	}
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, details := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger().Error("request failed",
			zap.Error(err),
			zap.String("requestId", middleware.GetReqID(r.Context())),
		)
		msg = "internal error"
	}
	writeError(w, r, status, code, msg, details)
}
