package config

import (
	"fmt"
	"net/url"
	"strings"

	"jobyaari-engine/internal/domain"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus any problems found.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string, lower bool) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			if lower {
				x = key
			}
			ys = append(ys, x)
		}
		return ys
	}

	out.Source.BaseURL = strings.TrimRight(strings.TrimSpace(out.Source.BaseURL), "/")
	out.Source.Categories = trimList(out.Source.Categories, false)
	out.Source.CategoryPaths = trimList(out.Source.CategoryPaths, false)
	out.Discover.Selectors = trimList(out.Discover.Selectors, false)
	out.Discover.AnchorKeywords = trimList(out.Discover.AnchorKeywords, true)
	out.Discover.ContainerTags = trimList(out.Discover.ContainerTags, true)
	out.Validate.Blocklist = trimList(out.Validate.Blocklist, true)
	out.Fetch.Renderer = strings.ToLower(strings.TrimSpace(out.Fetch.Renderer))
	out.Classify.Rules = append([]Rule(nil), cfg.Classify.Rules...)
	for i := range out.Classify.Rules {
		out.Classify.Rules[i].Any = trimList(out.Classify.Rules[i].Any, true)
	}

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if u, err := url.Parse(out.Source.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("source.base_url must be an absolute URL, got %q", out.Source.BaseURL)
	}
	if len(out.Source.Categories) == 0 {
		res.addErr("source.categories must list at least one category")
	}
	for _, c := range out.Source.Categories {
		if _, err := domain.ParseCategory(c); err != nil {
			res.addErr("source.categories: %v", err)
		}
	}
	for _, p := range out.Source.CategoryPaths {
		if !strings.Contains(p, "{slug}") {
			res.addErr("source.category_paths entry %q has no {slug} placeholder", p)
		}
	}

	if out.Fetch.TimeoutSeconds <= 0 {
		res.addErr("fetch.timeout_seconds must be > 0")
	}
	if out.Fetch.MaxRetries < 0 {
		res.addErr("fetch.max_retries must be >= 0")
	}
	if out.Fetch.BackoffBaseMs <= 0 {
		res.addErr("fetch.backoff_base_ms must be > 0")
	}
	if out.Fetch.BackoffMaxMs < out.Fetch.BackoffBaseMs {
		res.addErr("fetch.backoff_max_ms must be >= fetch.backoff_base_ms")
	}
	if out.Fetch.JitterMs < 0 {
		res.addErr("fetch.jitter_ms must be >= 0")
	}
	switch out.Fetch.Renderer {
	case "http", "playwright":
	default:
		res.addErr("fetch.renderer must be http or playwright, got %q", out.Fetch.Renderer)
	}
	if out.Fetch.RequestsPerSecond <= 0 {
		res.addErr("fetch.requests_per_second must be > 0")
	} else if out.Fetch.RequestsPerSecond > 5 {
		res.addWarn("fetch.requests_per_second is high (%.1f) and may get the scraper blocked.", out.Fetch.RequestsPerSecond)
	}

	if out.Breaker.FailureThreshold <= 0 {
		res.addErr("breaker.failure_threshold must be > 0")
	}
	if out.Breaker.CooldownSeconds <= 0 {
		res.addErr("breaker.cooldown_seconds must be > 0")
	}

	if out.Limits.MaxPerCategory <= 0 {
		res.addErr("limits.max_per_category must be > 0")
	}
	if out.Limits.MaxCandidates <= 0 {
		res.addErr("limits.max_candidates must be > 0")
	}
	if out.Limits.SnippetChars <= 0 {
		res.addErr("limits.snippet_chars must be > 0")
	}

	if out.Run.Concurrency <= 0 {
		res.addErr("run.concurrency must be > 0")
	} else if out.Run.Concurrency > 1 {
		res.addWarn("run.concurrency=%d disables the inter-category delay; categories hit the host in parallel.", out.Run.Concurrency)
	}
	if out.Run.InterCategoryDelayMs < 0 {
		res.addErr("run.inter_category_delay_ms must be >= 0")
	}

	if strings.TrimSpace(out.Persistence.OutputPath) == "" {
		res.addErr("persistence.output_path is required")
	}

	if len(out.Discover.Selectors) == 0 {
		res.addWarn("discover.selectors is empty; discovery starts at keyword-anchored ascent.")
	}
	if out.Discover.MaxAscent <= 0 {
		res.addErr("discover.max_ascent must be > 0")
	}
	if out.Discover.MinMatches < 1 {
		res.addErr("discover.min_matches must be >= 1")
	}

	if out.Validate.MinTitleLen < 1 {
		res.addErr("validate.min_title_len must be >= 1")
	}

	for i, r := range out.Classify.Rules {
		c, err := domain.ParseCategory(r.Category)
		if err != nil || c == domain.Uncategorized {
			res.addErr("classify.rules[%d].category must be one of Engineering, Science, Commerce, Education", i)
		}
		if len(r.Any) == 0 {
			res.addErr("classify.rules[%d].any must have at least 1 term", i)
		}
	}
	if len(out.Classify.Rules) == 0 {
		res.addWarn("classify.rules is empty; every record will be Uncategorized.")
	}

	return out, res
}
