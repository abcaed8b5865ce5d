package classify

import (
	"strings"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/scrape/util"
)

type Classifier interface {
	Classify(rec domain.JobRecord) domain.Category
}

// KeywordClassifier picks the first named category, in fixed order, whose
// keyword list has any substring hit in title, snippet and organization.
// Hit counts never matter, so the result does not depend on text length.
type KeywordClassifier struct {
	terms map[domain.Category][]string
}

func NewKeywordClassifier(rules []config.Rule) KeywordClassifier {
	terms := map[domain.Category][]string{}
	for _, r := range rules {
		cat, err := domain.ParseCategory(r.Category)
		if err != nil || cat == domain.Uncategorized {
			continue
		}
		for _, needle := range r.Any {
			if n := util.FoldText(needle); n != "" {
				terms[cat] = append(terms[cat], n)
			}
		}
	}
	return KeywordClassifier{terms: terms}
}

func (c KeywordClassifier) Classify(rec domain.JobRecord) domain.Category {
	text := util.FoldText(rec.Title + " " + rec.Snippet + " " + rec.Organization)
	for _, cat := range domain.NamedCategories {
		for _, n := range c.terms[cat] {
			if strings.Contains(text, n) {
				return cat
			}
		}
	}
	return domain.Uncategorized
}

// Policy decides what happens to records with no keyword hit.
type Policy struct {
	// PreferPageCategory files them under the category page they were found on.
	PreferPageCategory bool
	// DropUncategorized discards whatever is still Uncategorized.
	DropUncategorized bool
}

func PolicyFromConfig(cfg config.Config) Policy {
	return Policy{
		PreferPageCategory: cfg.Classify.PreferPageCategory,
		DropUncategorized:  cfg.Run.DropUncategorized,
	}
}

// Assign returns the record's category and whether it should be kept.
// page is the category whose listing produced the record, or "" if none.
func (p Policy) Assign(c Classifier, rec domain.JobRecord, page domain.Category) (domain.Category, bool) {
	cat := c.Classify(rec)
	if cat == domain.Uncategorized && p.PreferPageCategory && page.Valid() && page != domain.Uncategorized {
		cat = page
	}
	if cat == domain.Uncategorized && p.DropUncategorized {
		return cat, false
	}
	return cat, true
}
