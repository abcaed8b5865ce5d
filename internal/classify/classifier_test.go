package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/domain"
)

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier(config.DefaultRules())

	tests := []struct {
		name string
		rec  domain.JobRecord
		want domain.Category
	}{
		{"bank posting", domain.JobRecord{Title: "SBI PO Recruitment 2025", Snippet: "SBI PO Recruitment 2025 2000 Posts, Pay ₹57,000/month, Age 21-30 years, Graduate"}, domain.Commerce},
		{"organization counts", domain.JobRecord{Title: "Assistant Posts 2025", Organization: "ISRO"}, domain.Science},
		{"case and accents folded", domain.JobRecord{Title: "PROFESSÓR vacancy"}, domain.Education},
		{"fixed order beats hit count", domain.JobRecord{Title: "Bank bank bank finance clerk", Snippet: "technical"}, domain.Engineering},
		{"substring match", domain.JobRecord{Title: "Engineers wanted"}, domain.Engineering},
		{"no hit", domain.JobRecord{Title: "Driver Posts Open"}, domain.Uncategorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.rec))
		})
	}
}

func TestRulesOrderDoesNotChangePriority(t *testing.T) {
	c := NewKeywordClassifier([]config.Rule{
		{Category: "Education", Any: []string{"officer"}},
		{Category: "commerce", Any: []string{"officer"}},
		{Category: "Uncategorized", Any: []string{"officer"}},
		{Category: "Bogus", Any: []string{"officer"}},
	})
	assert.Equal(t, domain.Commerce, c.Classify(domain.JobRecord{Title: "Probation Officer"}))
}

func TestPolicyAssign(t *testing.T) {
	c := NewKeywordClassifier(config.DefaultRules())
	noHit := domain.JobRecord{Title: "Driver Posts Open"}
	hit := domain.JobRecord{Title: "Bank Clerk Posts"}

	tests := []struct {
		name   string
		policy Policy
		rec    domain.JobRecord
		page   domain.Category
		want   domain.Category
		keep   bool
	}{
		{"keyword hit overrides page", Policy{PreferPageCategory: true}, hit, domain.Science, domain.Commerce, true},
		{"page used when no hit", Policy{PreferPageCategory: true}, noHit, domain.Education, domain.Education, true},
		{"no page falls to uncategorized", Policy{PreferPageCategory: true}, noHit, "", domain.Uncategorized, true},
		{"page ignored when disabled", Policy{}, noHit, domain.Education, domain.Uncategorized, true},
		{"strict mode drops", Policy{DropUncategorized: true}, noHit, domain.Education, domain.Uncategorized, false},
		{"strict mode keeps page fallback", Policy{PreferPageCategory: true, DropUncategorized: true}, noHit, domain.Science, domain.Science, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, keep := tc.policy.Assign(c, tc.rec, tc.page)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.keep, keep)
		})
	}
}
