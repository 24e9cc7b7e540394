package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	AuthModeJWT = "jwt"
	AuthModeDev = "dev"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port            int           `env:"PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	AuthMode   string `env:"AUTH_MODE" env-default:"jwt"`
	DevSubject string `env:"DEV_SUBJECT"`
	JWT        JWTConfig

	StorageBackend string `env:"STORAGE_BACKEND" env-default:"memory"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisURL       string `env:"REDIS_URL"`
	RedisPrefix    string `env:"REDIS_PREFIX" env-default:"profiles:"`

	IdempotencyTTL   time.Duration `env:"IDEMPOTENCY_TTL" env-default:"24h"`
	BatchConcurrency int           `env:"BATCH_CONCURRENCY" env-default:"8"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`
}

// JWTConfig configures HS256 bearer token verification.
type JWTConfig struct {
	Issuer    string        `env:"JWT_ISSUER"`
	Audience  string        `env:"JWT_AUDIENCE"`
	Secret    string        `env:"JWT_SECRET"`
	ClockSkew time.Duration `env:"JWT_CLOCK_SKEW" env-default:"30s"`
}

// Load reads Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that depend on each other.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535, got %d", c.Port))
	}
	if c.BatchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("BATCH_CONCURRENCY must be at least 1, got %d", c.BatchConcurrency))
	}

	switch c.AuthMode {
	case AuthModeJWT:
		if c.JWT.Issuer == "" || c.JWT.Audience == "" || c.JWT.Secret == "" {
			errs = append(errs, errors.New("missing required env vars: JWT_ISSUER, JWT_AUDIENCE, JWT_SECRET"))
		}
	case AuthModeDev:
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeJWT, AuthModeDev, c.AuthMode))
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be one of memory, postgres, redis; got %q", c.StorageBackend))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
