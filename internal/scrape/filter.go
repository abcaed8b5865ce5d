package scrape

import (
	"regexp"
	"strings"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/scrape/discover"
	"jobyaari-engine/internal/scrape/util"
)

const (
	ReasonShortTitle = "short_title"
	ReasonBlocklist  = "blocklisted"
	ReasonNoSignal   = "no_signal"
)

// Validator drops candidate records that are unlikely to be real postings.
type Validator struct {
	minTitle      int
	block         *regexp.Regexp
	requireSignal bool
}

func NewValidator(cfg config.Config) *Validator {
	v := &Validator{
		minTitle:      cfg.Validate.MinTitleLen,
		requireSignal: cfg.Validate.RequireSignalOnFallback,
	}
	var words []string
	for _, b := range cfg.Validate.Blocklist {
		if b = util.FoldText(b); b != "" {
			words = append(words, regexp.QuoteMeta(b))
		}
	}
	if len(words) > 0 {
		v.block = regexp.MustCompile(`\b(?:` + strings.Join(words, "|") + `)\b`)
	}
	return v
}

// ShouldKeepRecord returns false with a reason when rec must be dropped.
// Records found by the generic tier also need at least one extracted field.
func (v *Validator) ShouldKeepRecord(rec domain.JobRecord, tier discover.Tier) (keep bool, reason string) {
	// 1) Title length, counted in characters
	title := strings.TrimSpace(rec.Title)
	if title == "" || len([]rune(title)) < v.minTitle {
		return false, ReasonShortTitle
	}

	// 2) Non-job markers, whole word
	if v.block != nil && v.block.MatchString(util.FoldText(title)) {
		return false, ReasonBlocklist
	}

	// 3) Generic matches are noisy
	if tier == discover.TierGeneric && v.requireSignal && !rec.HasSignal() {
		return false, ReasonNoSignal
	}

	return true, ""
}

func (v *Validator) IsValid(rec domain.JobRecord, tier discover.Tier) bool {
	keep, _ := v.ShouldKeepRecord(rec, tier)
	return keep
}
