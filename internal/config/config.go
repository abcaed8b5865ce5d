// engine/internal/config/config.go
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Rule maps keyword terms to a category. Order in the list is priority order.
type Rule struct {
	Category string   `yaml:"category" json:"category"`
	Any      []string `yaml:"any" json:"any"`
}

type Config struct {
	App struct {
		Port      int    `yaml:"port" json:"port"`
		DataDir   string `yaml:"data_dir" json:"data_dir"`
		LogLevel  string `yaml:"log_level" json:"log_level"`
		LogFormat string `yaml:"log_format" json:"log_format"`
	} `yaml:"app" json:"app"`

	Source struct {
		BaseURL       string   `yaml:"base_url" json:"base_url"`
		ListingPath   string   `yaml:"listing_path" json:"listing_path"`
		Categories    []string `yaml:"categories" json:"categories"`
		CategoryPaths []string `yaml:"category_paths" json:"category_paths"`
		UserAgent     string   `yaml:"user_agent" json:"user_agent"`
		Referer       string   `yaml:"referer" json:"referer"`
	} `yaml:"source" json:"source"`

	Fetch struct {
		TimeoutSeconds    int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		MaxRetries        int     `yaml:"max_retries" json:"max_retries"`
		BackoffBaseMs     int     `yaml:"backoff_base_ms" json:"backoff_base_ms"`
		BackoffMaxMs      int     `yaml:"backoff_max_ms" json:"backoff_max_ms"`
		JitterMs          int     `yaml:"jitter_ms" json:"jitter_ms"`
		Renderer          string  `yaml:"renderer" json:"renderer"` // http | playwright
		RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
		Burst             int     `yaml:"burst" json:"burst"`
	} `yaml:"fetch" json:"fetch"`

	Breaker struct {
		FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold"`
		CooldownSeconds  int `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	} `yaml:"breaker" json:"breaker"`

	Limits struct {
		MaxPerCategory    int `yaml:"max_per_category" json:"max_per_category"`
		MaxCandidates     int `yaml:"max_candidates" json:"max_candidates"`
		SnippetChars      int `yaml:"snippet_chars" json:"snippet_chars"`
		PromptPerCategory int `yaml:"prompt_per_category" json:"prompt_per_category"`
	} `yaml:"limits" json:"limits"`

	Run struct {
		InterCategoryDelayMs   int  `yaml:"inter_category_delay_ms" json:"inter_category_delay_ms"`
		Concurrency            int  `yaml:"concurrency" json:"concurrency"`
		RefreshIntervalMinutes int  `yaml:"refresh_interval_minutes" json:"refresh_interval_minutes"`
		DropUncategorized      bool `yaml:"drop_uncategorized" json:"drop_uncategorized"`
	} `yaml:"run" json:"run"`

	Persistence struct {
		OutputPath string `yaml:"output_path" json:"output_path"`
		Backup     bool   `yaml:"backup" json:"backup"`
		HistoryDB  string `yaml:"history_db" json:"history_db"`
	} `yaml:"persistence" json:"persistence"`

	Discover struct {
		Selectors      []string `yaml:"selectors" json:"selectors"`
		AnchorKeywords []string `yaml:"anchor_keywords" json:"anchor_keywords"`
		MinAnchorText  int      `yaml:"min_anchor_text" json:"min_anchor_text"`
		ContainerTags  []string `yaml:"container_tags" json:"container_tags"`
		MaxAscent      int      `yaml:"max_ascent" json:"max_ascent"`
		GenericMinText int      `yaml:"generic_min_text" json:"generic_min_text"`
		MinMatches     int      `yaml:"min_matches" json:"min_matches"`
	} `yaml:"discover" json:"discover"`

	Validate struct {
		MinTitleLen             int      `yaml:"min_title_len" json:"min_title_len"`
		Blocklist               []string `yaml:"blocklist" json:"blocklist"`
		RequireSignalOnFallback bool     `yaml:"require_signal_on_fallback" json:"require_signal_on_fallback"`
	} `yaml:"validate" json:"validate"`

	Classify struct {
		PreferPageCategory bool   `yaml:"prefer_page_category" json:"prefer_page_category"`
		Rules              []Rule `yaml:"rules" json:"rules"`
	} `yaml:"classify" json:"classify"`
}

// Load reads .env (if any), the YAML file at path, then env overrides.
// Unset values fall back to Defaults.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.Fetch.BackoffBaseMs) * time.Millisecond
}

func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.Fetch.BackoffMaxMs) * time.Millisecond
}

func (c Config) Jitter() time.Duration {
	return time.Duration(c.Fetch.JitterMs) * time.Millisecond
}

func (c Config) BreakerCooldown() time.Duration {
	return time.Duration(c.Breaker.CooldownSeconds) * time.Second
}

func (c Config) InterCategoryDelay() time.Duration {
	return time.Duration(c.Run.InterCategoryDelayMs) * time.Millisecond
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Run.RefreshIntervalMinutes) * time.Minute
}
