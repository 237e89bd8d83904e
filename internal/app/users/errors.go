package users

import "net/http"

// Error is an application-layer error that can be mapped to an HTTP response.
// Domain errors (not found, conflict, validation) are returned unchanged instead.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidPassword    = "INVALID_PASSWORD"
)

func badRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: msg}
}

func invalidCredentials() *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeInvalidCredentials, Message: "Invalid credentials"}
}

func invalidPassword(msg string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: CodeInvalidPassword, Message: msg}
}
