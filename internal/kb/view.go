package kb

import (
	"time"

	"jobyaari-engine/internal/domain"
)

// PromptRecord is the slice of a JobRecord handed to a downstream prompt.
type PromptRecord struct {
	Title        string `json:"title"`
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
	Posted       string `json:"posted,omitempty"`
}

// Trimmed keeps the first n records of every category with only the fields
// a prompt needs. n <= 0 keeps everything.
func Trimmed(kb domain.KnowledgeBase, n int) map[string][]PromptRecord {
	out := make(map[string][]PromptRecord, len(kb.Categories))
	for c, recs := range kb.Categories {
		if n > 0 && len(recs) > n {
			recs = recs[:n]
		}
		rows := make([]PromptRecord, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, PromptRecord{
				Title:        r.Title,
				Organization: r.Organization,
				URL:          r.URL,
				Posted:       r.Posted,
			})
		}
		out[string(c)] = rows
	}
	return out
}

type Stats struct {
	TotalJobs   int            `json:"total_jobs"`
	LastRefresh *time.Time     `json:"last_refresh"`
	PerCategory map[string]int `json:"per_category"`
}

func Summarize(kb domain.KnowledgeBase) Stats {
	st := Stats{TotalJobs: kb.Total(), PerCategory: kb.Counts()}
	if !kb.RefreshedAt.IsZero() {
		t := kb.RefreshedAt
		st.LastRefresh = &t
	}
	return st
}
