package tokens

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthorized is returned by Verify for any token that must be rejected.
var ErrUnauthorized = errors.New("unauthorized")

// Token is a signed access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Issuer mints access tokens for an authenticated subject.
type Issuer interface {
	Issue(ctx context.Context, subject string) (Token, error)
}

// Verifier validates an access token and returns its subject.
type Verifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}
