package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	StoreKind   string // "postgres" or "memory"

	CacheTTL           time.Duration
	RateLimitPerMinute int
	RateLimitWindow    time.Duration

	HTTPTimeout    time.Duration
	HTTPMaxRetries int

	SyncCronEnabled   bool
	SyncIntervalHours int
	SyncQueries       []string

	// Provider credentials. An empty credential disables the provider.
	AdzunaAppID     string
	AdzunaAppKey    string
	AdzunaCountry   string
	JoobleAPIKey    string
	AwinAPIToken    string
	AwinPublisherID string
	DealFeedBaseURL string
}

// Load reads environment variables and returns a validated Config.
// Missing provider credentials only disable that provider; a missing
// DATABASE_URL is fatal unless STORE=memory is requested.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StoreKind:          getEnv("STORE", "postgres"),
		CacheTTL:           60 * time.Second,
		RateLimitPerMinute: 30,
		RateLimitWindow:    time.Minute,
		HTTPTimeout:        15 * time.Second,
		HTTPMaxRetries:     3,
		SyncCronEnabled:    getEnv("SYNC_CRON_ENABLED", "true") == "true",
		SyncIntervalHours:  6,
		SyncQueries:        []string{"developer", "engineer"},
		AdzunaAppID:        os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:       os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry:      getEnv("ADZUNA_COUNTRY", "de"),
		JoobleAPIKey:       os.Getenv("JOOBLE_API_KEY"),
		AwinAPIToken:       os.Getenv("AWIN_API_TOKEN"),
		AwinPublisherID:    os.Getenv("AWIN_PUBLISHER_ID"),
		DealFeedBaseURL:    os.Getenv("DEALFEED_BASE_URL"),
	}

	if cfg.StoreKind != "memory" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required (or set STORE=memory)")
	}

	var err error
	if cfg.CacheTTL, err = getSeconds("CACHE_TTL_SECONDS", cfg.CacheTTL); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute); err != nil {
		return nil, err
	}
	if cfg.HTTPMaxRetries, err = getInt("HTTP_MAX_RETRIES", cfg.HTTPMaxRetries); err != nil {
		return nil, err
	}
	if cfg.SyncIntervalHours, err = getInt("SYNC_INTERVAL_HOURS", cfg.SyncIntervalHours); err != nil {
		return nil, err
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", v, err)
		}
		cfg.HTTPTimeout = d
	}

	if cfg.AdzunaAppID == "" || cfg.AdzunaAppKey == "" {
		slog.Warn("ADZUNA_APP_ID / ADZUNA_APP_KEY not set, adzuna source disabled")
	}
	if cfg.JoobleAPIKey == "" {
		slog.Warn("JOOBLE_API_KEY not set, jooble source disabled")
	}
	if cfg.AwinAPIToken == "" || cfg.AwinPublisherID == "" {
		slog.Warn("AWIN_API_TOKEN / AWIN_PUBLISHER_ID not set, awin source disabled")
	}
	if cfg.DealFeedBaseURL == "" {
		slog.Warn("DEALFEED_BASE_URL not set, dealfeed source disabled")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return parsed, nil
}

func getSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return time.Duration(parsed) * time.Second, nil
}
