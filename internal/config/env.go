package config

import (
	"os"
	"strconv"
	"strings"
)

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// ApplyEnv overrides the operational knobs from JOBYAARI_* variables.
func ApplyEnv(cfg *Config) {
	cfg.App.Port = getEnvInt("JOBYAARI_PORT", cfg.App.Port)
	cfg.App.DataDir = getEnv("JOBYAARI_DATA_DIR", cfg.App.DataDir)
	cfg.App.LogLevel = getEnv("JOBYAARI_LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogFormat = getEnv("JOBYAARI_LOG_FORMAT", cfg.App.LogFormat)

	cfg.Source.BaseURL = getEnv("JOBYAARI_BASE_URL", cfg.Source.BaseURL)
	cfg.Source.ListingPath = getEnv("JOBYAARI_LISTING_PATH", cfg.Source.ListingPath)

	cfg.Fetch.TimeoutSeconds = getEnvInt("JOBYAARI_FETCH_TIMEOUT_SECONDS", cfg.Fetch.TimeoutSeconds)
	cfg.Fetch.MaxRetries = getEnvInt("JOBYAARI_MAX_RETRIES", cfg.Fetch.MaxRetries)
	cfg.Fetch.Renderer = getEnv("JOBYAARI_RENDERER", cfg.Fetch.Renderer)

	cfg.Breaker.FailureThreshold = getEnvInt("JOBYAARI_BREAKER_THRESHOLD", cfg.Breaker.FailureThreshold)
	cfg.Breaker.CooldownSeconds = getEnvInt("JOBYAARI_BREAKER_COOLDOWN_SECONDS", cfg.Breaker.CooldownSeconds)

	cfg.Limits.MaxPerCategory = getEnvInt("JOBYAARI_MAX_PER_CATEGORY", cfg.Limits.MaxPerCategory)
	cfg.Run.InterCategoryDelayMs = getEnvInt("JOBYAARI_INTER_CATEGORY_DELAY_MS", cfg.Run.InterCategoryDelayMs)
	cfg.Run.DropUncategorized = getEnvBool("JOBYAARI_DROP_UNCATEGORIZED", cfg.Run.DropUncategorized)

	cfg.Persistence.OutputPath = getEnv("JOBYAARI_OUTPUT_PATH", cfg.Persistence.OutputPath)
}
