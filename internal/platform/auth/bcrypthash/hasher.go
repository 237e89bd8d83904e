// Package bcrypthash implements hasher.Provider with bcrypt.
package bcrypthash

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
)

// DefaultCost matches the cost used for existing stored hashes.
const DefaultCost = 6

// bcrypt ignores input past 72 bytes; longer passwords are rejected instead.
const maxPasswordBytes = 72

type Hasher struct {
	cost int
}

// New clamps cost to the range bcrypt accepts.
func New(cost int) *Hasher {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Cost() int { return h.cost }

func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	_ = ctx
	if len(plain) > maxPasswordBytes {
		return "", domain.Validation("invalid password", map[string]any{"password": "must be at most 72 bytes"})
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether plain matches hash. A malformed hash is an error.
func (h *Hasher) Compare(ctx context.Context, plain, hash string) (bool, error) {
	_ = ctx
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
