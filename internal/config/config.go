package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings. It is read once at startup from
// environment variables and treated as immutable afterwards.
type Config struct {
	// Server
	Addr string

	// Database. Empty DSN runs the API against the in-memory store,
	// which is only suitable for local development.
	PostgresDSN string

	// Tokens. Access and refresh secrets must differ: tokens of one
	// kind must never validate under the other kind's secret.
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	// Google federated login. Login with Google is disabled when the
	// client ID is empty.
	GoogleClientID string

	// HTTP limits
	RateLimitBurst  int
	RateLimitPerSec int
	MaxBodyBytes    int64
}

// Load reads configuration from the environment. Required variables are
// collected and reported together so a broken deployment fails with one
// actionable message.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.AccessTokenSecret = os.Getenv("MEDIMEET_ACCESS_TOKEN_SECRET")
	if cfg.AccessTokenSecret == "" {
		missing = append(missing, "MEDIMEET_ACCESS_TOKEN_SECRET")
	}
	cfg.RefreshTokenSecret = os.Getenv("MEDIMEET_REFRESH_TOKEN_SECRET")
	if cfg.RefreshTokenSecret == "" {
		missing = append(missing, "MEDIMEET_REFRESH_TOKEN_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, fmt.Errorf("MEDIMEET_ACCESS_TOKEN_SECRET and MEDIMEET_REFRESH_TOKEN_SECRET must differ")
	}

	cfg.Addr = getEnvString("MEDIMEET_ADDR", ":8080")
	cfg.PostgresDSN = os.Getenv("MEDIMEET_PG_DSN")
	cfg.GoogleClientID = os.Getenv("MEDIMEET_GOOGLE_CLIENT_ID")

	cfg.AccessTokenTTL = getEnvDuration("MEDIMEET_ACCESS_TOKEN_TTL", 15*time.Minute)
	cfg.RefreshTokenTTL = getEnvDuration("MEDIMEET_REFRESH_TOKEN_TTL", 14*24*time.Hour)
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return nil, fmt.Errorf("access token TTL (%s) must be shorter than refresh token TTL (%s)",
			cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}

	cfg.RateLimitBurst = getEnvInt("MEDIMEET_RATE_BURST", 50)
	cfg.RateLimitPerSec = getEnvInt("MEDIMEET_RATE_PER_SEC", 25)
	cfg.MaxBodyBytes = getEnvInt64("MEDIMEET_MAX_BODY_BYTES", 1<<20)

	return cfg, nil
}

func getEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
