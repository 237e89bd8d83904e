// Package idempotency stores signup replay records in the idempotency_keys table.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/user-accounts-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/idempotency"
)

// fingerprintMatch selects one row by the full fingerprint ($1..$5).
const fingerprintMatch = `idempotency_key = $1 AND subject = $2 AND method = $3 AND route = $4 AND body_hash = $5`

const selectRecord = `SELECT status_code, content_type, body, created_at FROM idempotency_keys WHERE ` + fingerprintMatch

const upsertRecord = `
	INSERT INTO idempotency_keys
		(idempotency_key, subject, method, route, body_hash, status_code, content_type, body, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (idempotency_key, subject, method, route, body_hash) DO UPDATE
	SET status_code = EXCLUDED.status_code,
	    content_type = EXCLUDED.content_type,
	    body = EXCLUDED.body,
	    created_at = EXCLUDED.created_at`

// Store is a Postgres implementation of idempotency.Store.
// Records older than ttl are invisible to Get and removed by Purge; ttl <= 0 keeps them forever.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	return NewStoreWithTTL(pool, 0)
}

func NewStoreWithTTL(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, postgres.ErrNilPool
	}
	var rec idempotency.Record
	err := s.pool.QueryRow(ctx, selectRecord, fingerprintArgs(fp)...).
		Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return idempotency.Record{}, false, nil
	case err != nil:
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if s.expired(rec.CreatedAt) {
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return postgres.ErrNilPool
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.Body == nil {
		rec.Body = []byte{}
	}
	args := append(fingerprintArgs(fp), rec.StatusCode, rec.ContentType, rec.Body, rec.CreatedAt.UTC())
	_, err := s.pool.Exec(ctx, upsertRecord, args...)
	return err
}

// Purge deletes expired records and reports how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, postgres.ErrNilPool
	}
	if s.ttl <= 0 {
		return 0, nil
	}
	ct, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (s *Store) expired(createdAt time.Time) bool {
	return s.ttl > 0 && createdAt.Before(s.now().Add(-s.ttl))
}

func fingerprintArgs(fp idempotency.Fingerprint) []any {
	return []any{string(fp.Key), string(fp.Subject), fp.Method, fp.Route, fp.BodyHash}
}
