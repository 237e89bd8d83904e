// Package jwttoken issues and verifies HS256 access tokens.
package jwttoken

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Overland-East-Bay/user-accounts-api/internal/platform/config"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/tokens"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Service implements tokens.Issuer and tokens.Verifier.
type Service struct {
	cfg   config.JWTConfig
	clock Clock
}

var (
	_ tokens.Issuer   = (*Service)(nil)
	_ tokens.Verifier = (*Service)(nil)
)

func New(cfg config.JWTConfig) *Service {
	return NewWithOptions(cfg, nil)
}

func NewWithOptions(cfg config.JWTConfig, clock Clock) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{cfg: cfg, clock: clock}
}

// Issue signs a token whose subject is the given user id.
func (s *Service) Issue(ctx context.Context, subject string) (tokens.Token, error) {
	_ = ctx
	if s.cfg.Secret == "" {
		return tokens.Token{}, errors.New("jwt secret not configured")
	}
	if subject == "" {
		return tokens.Token{}, errors.New("empty token subject")
	}

	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.cfg.ExpiresIn)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return tokens.Token{}, err
	}
	return tokens.Token{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, algorithm, exp/nbf (with clock skew) and issuer when configured.
// Every failure maps to tokens.ErrUnauthorized.
func (s *Service) Verify(ctx context.Context, raw string) (string, error) {
	_ = ctx
	if s.cfg.Secret == "" || raw == "" {
		return "", tokens.ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithLeeway(s.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, tokens.ErrUnauthorized
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", tokens.ErrUnauthorized
	}
	if claims.Subject == "" {
		return "", tokens.ErrUnauthorized
	}
	return claims.Subject, nil
}
