package scrape

import (
	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/scrape/util"
)

// DedupeKey is the canonical URL when there is one, else the folded title.
func DedupeKey(rec domain.JobRecord) string {
	if rec.URL != "" {
		if u := util.CanonicalizeURL(rec.URL); u != "" {
			return "url:" + u
		}
	}
	return "title:" + util.FoldText(rec.Title)
}

// Dedupe keeps the first record for each key, in input order.
func Dedupe(recs []domain.JobRecord) []domain.JobRecord {
	seen := make(map[string]struct{}, len(recs))
	out := make([]domain.JobRecord, 0, len(recs))
	for _, r := range recs {
		k := DedupeKey(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
