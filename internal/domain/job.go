package domain

import "time"

// NotSpecified is the organization value used when none could be resolved.
const NotSpecified = "Not specified"

// JobRecord is one extracted posting. Optional fields are empty when absent
// and omitted from the persisted JSON.
type JobRecord struct {
	Title              string             `json:"title"`
	Organization       string             `json:"organization"`
	Category           Category           `json:"category"`
	URL                string             `json:"url,omitempty"`
	Snippet            string             `json:"snippet,omitempty"`
	Vacancies          string             `json:"vacancies,omitempty"`
	Salary             string             `json:"salary,omitempty"`
	Age                string             `json:"age,omitempty"`
	Experience         string             `json:"experience,omitempty"`
	Qualification      string             `json:"qualification,omitempty"`
	QualificationLevel QualificationLevel `json:"qualification_level,omitempty"`
	Posted             string             `json:"posted,omitempty"`
	ScrapedAt          time.Time          `json:"scraped_at"`
}

// HasSignal reports whether any field beyond title/organization was extracted.
func (r JobRecord) HasSignal() bool {
	if r.Organization != "" && r.Organization != NotSpecified {
		return true
	}
	for _, v := range []string{r.Vacancies, r.Salary, r.Age, r.Experience, r.Qualification, r.Posted} {
		if v != "" {
			return true
		}
	}
	return false
}

// KnowledgeBase maps category name to its ordered records.
type KnowledgeBase struct {
	RefreshedAt time.Time
	Categories  map[Category][]JobRecord
}

// NewKnowledgeBase returns a mapping with every named category present and empty.
func NewKnowledgeBase() KnowledgeBase {
	kb := KnowledgeBase{Categories: make(map[Category][]JobRecord, len(NamedCategories))}
	for _, c := range NamedCategories {
		kb.Categories[c] = []JobRecord{}
	}
	return kb
}

func (kb KnowledgeBase) Total() int {
	n := 0
	for _, recs := range kb.Categories {
		n += len(recs)
	}
	return n
}

func (kb KnowledgeBase) Counts() map[string]int {
	out := make(map[string]int, len(kb.Categories))
	for c, recs := range kb.Categories {
		out[string(c)] = len(recs)
	}
	return out
}
