package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// Records older than TTL (when set) are treated as absent and dropped on the next
// read of that key or the next Put. It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	m   map[idempotency.Fingerprint]idempotency.Record
	ttl time.Duration
	now func() time.Time
}

func NewStore() *Store {
	return NewStoreWithTTL(0)
}

func NewStoreWithTTL(ttl time.Duration) *Store {
	return &Store{
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
		ttl: ttl,
		now: time.Now,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	rec, ok := s.m[fp]
	s.mu.RUnlock()
	if !ok || !s.expired(rec) {
		return rec, ok, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[fp]; ok && s.expired(cur) {
		delete(s.m, fp)
	}
	return idempotency.Record{}, false, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	rec.Body = append([]byte(nil), rec.Body...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.m[fp] = rec
	return nil
}

// Len reports the number of records held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// sweep must be called with mu held.
func (s *Store) sweep() {
	if s.ttl <= 0 {
		return
	}
	for fp, rec := range s.m {
		if s.expired(rec) {
			delete(s.m, fp)
		}
	}
}

func (s *Store) expired(rec idempotency.Record) bool {
	return s.ttl > 0 && s.now().Sub(rec.CreatedAt) > s.ttl
}
