package domain

import (
	"fmt"
	"strings"
)

type Category string

const (
	Engineering   Category = "Engineering"
	Science       Category = "Science"
	Commerce      Category = "Commerce"
	Education     Category = "Education"
	Uncategorized Category = "Uncategorized"
)

// NamedCategories is the fixed enumeration order used for tie-breaking.
var NamedCategories = []Category{Engineering, Science, Commerce, Education}

func (c Category) Valid() bool {
	switch c {
	case Engineering, Science, Commerce, Education, Uncategorized:
		return true
	}
	return false
}

// Slug is the lower-case path segment used in category URLs.
func (c Category) Slug() string { return strings.ToLower(string(c)) }

func ParseCategory(s string) (Category, error) {
	for _, c := range append(NamedCategories, Uncategorized) {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

type QualificationLevel string

const (
	LevelGraduate     QualificationLevel = "Graduate"
	LevelPostgraduate QualificationLevel = "Postgraduate"
	LevelDoctorate    QualificationLevel = "Doctorate"
	LevelDiploma      QualificationLevel = "Diploma/Certificate"
	LevelOther        QualificationLevel = "Other"
	LevelNone         QualificationLevel = "Not specified"
)
