package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "BRUnlockFaster"
	defaultAppEnv         = "development"
	defaultPort           = "3000"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultBackendTimeout = 15 * time.Second
	defaultSessionTTL     = 7 * 24 * time.Hour
	defaultPollInterval   = 5 * time.Second
	defaultIdleTimeout    = 2 * time.Minute
	defaultIdempotencyTTL = 24 * time.Hour
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	BackendURL     string
	BackendTimeout time.Duration
	RedisURL       string
	SessionTTL     time.Duration
	PollInterval   time.Duration
	IdleTimeout    time.Duration
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	CookieSecure   bool
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		BackendURL:     strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		BackendTimeout: defaultBackendTimeout,
		RedisURL:       os.Getenv("REDIS_URL"),
		SessionTTL:     defaultSessionTTL,
		PollInterval:   defaultPollInterval,
		IdleTimeout:    defaultIdleTimeout,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}

	durations := []struct {
		envVar string
		dst    *time.Duration
	}{
		{"BACKEND_TIMEOUT", &cfg.BackendTimeout},
		{"SESSION_TTL", &cfg.SessionTTL},
		{"CHAT_POLL_INTERVAL", &cfg.PollInterval},
		{"CHAT_IDLE_TIMEOUT", &cfg.IdleTimeout},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.envVar)
		if v == "" {
			continue
		}
		// Accept both "30s" style durations and bare second counts.
		if seconds, err := strconv.Atoi(v); err == nil {
			*d.dst = time.Duration(seconds) * time.Second
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.envVar, err)
		}
		*d.dst = parsed
	}

	if cfg.BackendURL == "" {
		return Config{}, fmt.Errorf("BACKEND_URL must be set")
	}

	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("CHAT_POLL_INTERVAL must be positive")
	}

	cfg.CookieSecure = !IsDev(cfg.AppEnv)

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the environment name denotes a local development setup.
func IsDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
