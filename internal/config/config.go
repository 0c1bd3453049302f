package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "VaultPay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour

	// Reference admission policy: 10 operations per wallet per minute with a
	// 2 second wait for a permit.
	defaultRateLimitCapacity = 10
	defaultRateLimitPeriod   = time.Minute
	defaultRateLimitWait     = 2 * time.Second

	defaultLockWait = 5 * time.Second
	defaultIdleTTL  = 10 * time.Minute
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Per-wallet admission control.
	RateLimitCapacity int
	RateLimitPeriod   time.Duration
	RateLimitWait     time.Duration

	// Per-wallet exclusive access.
	LockWait time.Duration

	// Eviction horizon for idle limiter and lock entries.
	IdleTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            getEnv("APP_ENV", defaultAppEnv),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		ShutdownPeriod:    defaultShutdownDelay,
		IdempotencyTTL:    defaultIdempotencyTTL,
		RateLimitCapacity: defaultRateLimitCapacity,
		RateLimitPeriod:   defaultRateLimitPeriod,
		RateLimitWait:     defaultRateLimitWait,
		LockWait:          defaultLockWait,
		IdleTTL:           defaultIdleTTL,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPeriod, err = durationEnv("RATE_LIMIT_PERIOD", cfg.RateLimitPeriod); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitWait, err = durationEnv("RATE_LIMIT_WAIT", cfg.RateLimitWait); err != nil {
		return Config{}, err
	}
	if cfg.LockWait, err = durationEnv("LOCK_WAIT", cfg.LockWait); err != nil {
		return Config{}, err
	}
	if cfg.IdleTTL, err = durationEnv("LIMITER_IDLE_TTL", cfg.IdleTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("RATE_LIMIT_CAPACITY"); v != "" {
		capacity, err := strconv.Atoi(v)
		if err != nil || capacity <= 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_CAPACITY: %q", v)
		}
		cfg.RateLimitCapacity = capacity
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
