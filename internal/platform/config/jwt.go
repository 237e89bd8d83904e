package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// JWTConfig configures HS256 access tokens issued and verified by this service.
type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
	Issuer    string
	ClockSkew time.Duration
}

func (c JWTConfig) Validate() error {
	if c.Secret == "" {
		return errors.New("missing required env var: JWT_SECRET")
	}
	if c.ExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be a positive number of seconds")
	}
	if c.ClockSkew < 0 {
		return errors.New("JWT_CLOCK_SKEW must not be negative")
	}
	return nil
}

func loadJWTConfig(v *viper.Viper) (JWTConfig, error) {
	cfg := JWTConfig{
		Secret:    v.GetString(keyJWTSecret),
		Issuer:    v.GetString(keyJWTIssuer),
		ExpiresIn: 24 * time.Hour,
		ClockSkew: 30 * time.Second,
	}

	if s := v.GetString(keyJWTExpiresIn); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return JWTConfig{}, fmt.Errorf("JWT_EXPIRES_IN must be a number of seconds (e.g. 86400): %w", err)
		}
		cfg.ExpiresIn = time.Duration(n) * time.Second
	}
	if s := v.GetString(keyJWTClockSkew); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return JWTConfig{}, fmt.Errorf("JWT_CLOCK_SKEW must be a duration (e.g. 30s): %w", err)
		}
		cfg.ClockSkew = d
	}
	return cfg, nil
}
