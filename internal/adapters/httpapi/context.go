package httpapi

import "context"

type subjectCtxKey struct{}

// WithSubject records the authenticated caller (a user id, or the dev subject).
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectCtxKey{}, subject)
}

// SubjectFromContext reports the caller stored by the auth middleware.
func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectCtxKey{}).(string)
	return v, ok && v != ""
}
