package idempotency

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// AnonymousSubject scopes keys sent on unauthenticated routes such as signup.
const AnonymousSubject domain.SubjectID = "anonymous"

// Fingerprint identifies a request for replay purposes:
// key + subject + route + request body hash.
// Route is the HTTP method plus the route pattern (e.g. "POST /users").
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response replayed for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
