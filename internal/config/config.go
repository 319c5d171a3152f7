// Package config loads service settings from the environment, reading a
// local .env file first when one exists.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of the live widget server.
type Config struct {
	Port string

	BackendURL           string
	BackendTimeout       time.Duration
	BackendSessionCookie string

	SearchDebounce time.Duration
	SearchLimit    int
	PollInterval   time.Duration
	NoticeTTL      time.Duration
	LoginURL       string

	SessionSecret string
	SessionTTL    time.Duration
	SessionIdle   time.Duration
	AllowedOrigin string

	NATSUrl           string
	NATSSubjectPrefix string

	StaticDir string
	LogLevel  slog.Level
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	c := &Config{
		Port:                 getEnv("PORT", "8080"),
		BackendURL:           strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8069"), "/"),
		BackendSessionCookie: getEnv("BACKEND_SESSION_COOKIE", "session_id"),
		LoginURL:             getEnv("LOGIN_URL", "/web/login"),
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		NATSUrl:              getEnv("NATS_URL", ""),
		NATSSubjectPrefix:    getEnv("NATS_SUBJECT_PREFIX", "cotisation.widgets"),
		StaticDir:            getEnv("STATIC_DIR", "./web/static"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", ""),
	}

	var err error
	if c.BackendTimeout, err = getDuration("BACKEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if c.SearchDebounce, err = getDuration("SEARCH_DEBOUNCE", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if c.PollInterval, err = getDuration("POLL_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if c.NoticeTTL, err = getDuration("NOTICE_TTL", 5*time.Second); err != nil {
		return nil, err
	}
	if c.SessionTTL, err = getDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if c.SessionIdle, err = getDuration("SESSION_IDLE", 10*time.Minute); err != nil {
		return nil, err
	}
	if c.SearchLimit, err = getInt("SEARCH_LIMIT", 12); err != nil {
		return nil, err
	}
	if c.SearchLimit <= 0 || c.SearchLimit > 50 {
		return nil, fmt.Errorf("SEARCH_LIMIT must be between 1 and 50, got %d", c.SearchLimit)
	}
	if err := c.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is empty")
	}
	if c.AllowedOrigin != "" {
		c.AllowedOrigin = strings.TrimRight(c.AllowedOrigin, "/")
		u, err := url.Parse(c.AllowedOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Path != "" {
			return nil, fmt.Errorf("ALLOWED_ORIGIN must be scheme://host[:port], got %q", c.AllowedOrigin)
		}
	}
	return c, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
