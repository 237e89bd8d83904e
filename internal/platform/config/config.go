package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	keyConfigFile         = "CONFIG_FILE"
	keyPort               = "PORT"
	keyLogLevel           = "LOG_LEVEL"
	keyLogFormat          = "LOG_FORMAT"
	keyStorageBackend     = "STORAGE_BACKEND"
	keyDatabaseURL        = "DATABASE_URL"
	keyIdempotencyBackend = "IDEMPOTENCY_BACKEND"
	keyIdempotencyTTL     = "IDEMPOTENCY_TTL"
	keyRedisURL           = "REDIS_URL"
	keyAuthMode           = "AUTH_MODE"
	keyDevSubject         = "DEV_SUBJECT"
	keyBcryptCost         = "BCRYPT_COST"
	keyJWTSecret          = "JWT_SECRET"
	keyJWTExpiresIn       = "JWT_EXPIRES_IN"
	keyJWTIssuer          = "JWT_ISSUER"
	keyJWTClockSkew       = "JWT_CLOCK_SKEW"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	AuthModeJWT = "jwt"
	AuthModeDev = "dev"

	// devJWTSecret signs login tokens in dev mode when JWT_SECRET is unset.
	devJWTSecret = "dev-only-insecure-secret"
)

// Config is the service configuration, read from the environment and an optional
// CONFIG_FILE (any format viper understands).
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	StorageBackend string
	DatabaseURL    string

	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	RedisURL           string

	AuthMode   string
	DevSubject string
	JWT        JWTConfig

	BcryptCost int
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through v. Values set on v directly win over env vars.
func LoadFrom(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	v.SetDefault(keyPort, "3000")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "json")
	v.SetDefault(keyStorageBackend, BackendMemory)
	v.SetDefault(keyAuthMode, AuthModeJWT)
	v.SetDefault(keyDevSubject, "")
	v.SetDefault(keyIdempotencyTTL, "24h")
	v.SetDefault(keyBcryptCost, "6")

	if file := v.GetString(keyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", file, err)
		}
	}

	cfg := Config{
		Port:               v.GetString(keyPort),
		LogLevel:           strings.ToLower(v.GetString(keyLogLevel)),
		LogFormat:          strings.ToLower(v.GetString(keyLogFormat)),
		StorageBackend:     strings.ToLower(v.GetString(keyStorageBackend)),
		DatabaseURL:        v.GetString(keyDatabaseURL),
		IdempotencyBackend: strings.ToLower(v.GetString(keyIdempotencyBackend)),
		RedisURL:           v.GetString(keyRedisURL),
		AuthMode:           strings.ToLower(v.GetString(keyAuthMode)),
		DevSubject:         v.GetString(keyDevSubject),
	}
	if cfg.IdempotencyBackend == "" {
		cfg.IdempotencyBackend = cfg.StorageBackend
	}

	ttl, err := time.ParseDuration(v.GetString(keyIdempotencyTTL))
	if err != nil {
		return Config{}, fmt.Errorf("IDEMPOTENCY_TTL must be a duration (e.g. 24h): %w", err)
	}
	cfg.IdempotencyTTL = ttl

	cost, err := strconv.Atoi(v.GetString(keyBcryptCost))
	if err != nil {
		return Config{}, fmt.Errorf("BCRYPT_COST must be an integer: %w", err)
	}
	cfg.BcryptCost = cost

	cfg.JWT, err = loadJWTConfig(v)
	if err != nil {
		return Config{}, err
	}
	if cfg.AuthMode == AuthModeDev && cfg.JWT.Secret == "" {
		cfg.JWT.Secret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (expected memory|postgres)", c.StorageBackend)
	}

	switch c.IdempotencyBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q (expected memory|postgres|redis)", c.IdempotencyBackend)
	}

	switch c.AuthMode {
	case AuthModeDev:
	case AuthModeJWT:
		if err := c.JWT.Validate(); err != nil {
			return fmt.Errorf("invalid auth config: %w", err)
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q (expected jwt|dev)", c.AuthMode)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q (expected json|console)", c.LogFormat)
	}
	return nil
}
