package config

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Defaults returns a runnable configuration for jobyaari.com.
func Defaults() Config {
	var cfg Config

	cfg.App.Port = 38471
	cfg.App.DataDir = "."
	cfg.App.LogLevel = "info"
	cfg.App.LogFormat = "json"

	cfg.Source.BaseURL = "https://www.jobyaari.com"
	cfg.Source.ListingPath = "/"
	cfg.Source.Categories = []string{"Engineering", "Science", "Commerce", "Education"}
	cfg.Source.CategoryPaths = []string{"/category/{slug}", "/{slug}", "/tag/{slug}"}
	cfg.Source.UserAgent = DefaultUserAgent

	cfg.Fetch.TimeoutSeconds = 20
	cfg.Fetch.MaxRetries = 3
	cfg.Fetch.BackoffBaseMs = 1000
	cfg.Fetch.BackoffMaxMs = 30000
	cfg.Fetch.JitterMs = 500
	cfg.Fetch.Renderer = "http"
	cfg.Fetch.RequestsPerSecond = 1.0
	cfg.Fetch.Burst = 2

	cfg.Breaker.FailureThreshold = 3
	cfg.Breaker.CooldownSeconds = 90

	cfg.Limits.MaxPerCategory = 15
	cfg.Limits.MaxCandidates = 200
	cfg.Limits.SnippetChars = 1200
	cfg.Limits.PromptPerCategory = 6

	cfg.Run.InterCategoryDelayMs = 2500
	cfg.Run.Concurrency = 1

	cfg.Persistence.OutputPath = "knowledge_base.json"
	cfg.Persistence.Backup = true
	cfg.Persistence.HistoryDB = "history.db"

	cfg.Discover.Selectors = []string{
		"article[class*=job]",
		"article[class*=post]",
		"li[class*=job]",
		"div[class*=job-listing]",
		"div[class*=listing]",
		"div[class*=job]",
		"article[class*=entry]",
		"div[class*=post]",
		"div[class*=card]",
		"div[class*=entry]",
		"li[class*=post]",
		"div[class*=item]",
	}
	cfg.Discover.AnchorKeywords = []string{
		"recruitment", "vacancy", "vacancies", "notification", "admit",
		"apply online", "posts", "2024", "2025", "2026",
	}
	cfg.Discover.MinAnchorText = 15
	cfg.Discover.ContainerTags = []string{"article", "li", "div", "section", "tr"}
	cfg.Discover.MaxAscent = 4
	cfg.Discover.GenericMinText = 40
	cfg.Discover.MinMatches = 2

	cfg.Validate.MinTitleLen = 6
	cfg.Validate.Blocklist = []string{"advertisement", "sponsored", "share", "follow", "subscribe"}
	cfg.Validate.RequireSignalOnFallback = true

	cfg.Classify.PreferPageCategory = true
	cfg.Classify.Rules = DefaultRules()

	return cfg
}

func DefaultRules() []Rule {
	return []Rule{
		{Category: "Engineering", Any: []string{
			"engineer", "engineering", "technical", "civil", "mechanical", "electrical",
			"electronics", "b.tech", "m.tech", "gate", "draftsman",
		}},
		{Category: "Science", Any: []string{
			"scientist", "science", "research", "laboratory", "physics", "chemistry",
			"biology", "b.sc", "m.sc", "isro", "drdo", "csir",
		}},
		{Category: "Commerce", Any: []string{
			"sbi", "bank", "banking", "finance", "accountant", "accounts", "commerce",
			"clerk", "b.com", "m.com", "insurance", "audit", "probationary officer",
		}},
		{Category: "Education", Any: []string{
			"teacher", "teaching", "professor", "lecturer", "faculty", "school",
			"education", "b.ed", "tgt", "pgt", "principal",
		}},
	}
}
