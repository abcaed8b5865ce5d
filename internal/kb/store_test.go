package kb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobyaari-engine/internal/domain"
)

var scraped = time.Date(2025, 3, 20, 9, 30, 0, 0, time.UTC)

func sampleKB() domain.KnowledgeBase {
	kb := domain.NewKnowledgeBase()
	kb.Categories[domain.Commerce] = []domain.JobRecord{
		{
			Title: "SBI PO Recruitment 2025", Organization: "SBI", Category: domain.Commerce,
			URL: "https://www.jobyaari.com/sbi-po", Snippet: "SBI PO Recruitment 2025 2000 Posts",
			Vacancies: "2000", Salary: "₹57,000/month", Age: "21-30 years",
			Qualification: "Graduate", QualificationLevel: domain.LevelGraduate, ScrapedAt: scraped,
		},
		{Title: "Bank Clerk Notification", Organization: domain.NotSpecified, Category: domain.Commerce, ScrapedAt: scraped},
	}
	kb.Categories[domain.Science] = []domain.JobRecord{
		{Title: "ISRO Scientist Vacancy", Organization: "ISRO", Category: domain.Science, Posted: "2025-03-17", Experience: "Fresher", ScrapedAt: scraped},
	}
	kb.Categories[domain.Uncategorized] = []domain.JobRecord{
		{Title: "Driver Posts Open", Organization: domain.NotSpecified, Category: domain.Uncategorized, ScrapedAt: scraped},
	}
	return kb
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "data", "knowledge_base.json"), true, nil)
	in := sampleKB()

	require.NoError(t, s.Save(in))
	out, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, in.Categories, out.Categories)
	assert.False(t, out.RefreshedAt.IsZero())
	assert.NoFileExists(t, s.tmpPath())
}

func TestLoadMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()

	s := NewStore(filepath.Join(dir, "absent.json"), false, nil)
	kb, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.NewKnowledgeBase().Categories, kb.Categories)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	kb, err = NewStore(bad, false, nil).Load()
	assert.True(t, domain.IsKind(err, domain.KindPersistence))
	assert.Len(t, kb.Categories, 4)
	assert.Equal(t, 0, kb.Total())
}

func TestLoadSkipsUnknownCategories(t *testing.T) {
	p := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"engineering":[{"title":"Civil Engineer Posts","organization":"NHAI","category":"Engineering","scraped_at":"2025-03-20T09:30:00Z"}],"Sports":[]}`), 0o644))

	kb, err := NewStore(p, false, nil).Load()
	require.NoError(t, err)
	assert.Len(t, kb.Categories[domain.Engineering], 1)
	assert.Len(t, kb.Categories, 4)
	assert.Empty(t, kb.Categories[domain.Education])
}

func TestSaveWritesBackupOfPrevious(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "kb.json"), true, nil)

	first := sampleKB()
	require.NoError(t, s.Save(first))
	before, err := os.ReadFile(s.Path)
	require.NoError(t, err)

	require.NoError(t, s.Save(domain.NewKnowledgeBase()))
	backup, err := os.ReadFile(s.backupPath())
	require.NoError(t, err)
	assert.Equal(t, before, backup)

	kb, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, kb.Total())
}

func TestInterruptedSaveLeavesFileUntouched(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "kb.json"), true, nil)
	require.NoError(t, s.Save(sampleKB()))
	before, err := os.ReadFile(s.Path)
	require.NoError(t, err)

	s.beforeCommit = func() error {
		assert.FileExists(t, s.tmpPath())
		return errors.New("killed")
	}
	err = s.Save(domain.NewKnowledgeBase())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindPersistence))

	after, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, s.backupPath())
}

func TestEmptyCategoriesSerializeAsArrays(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "kb.json"), false, nil)
	kb := domain.KnowledgeBase{Categories: map[domain.Category][]domain.JobRecord{domain.Science: nil}}
	require.NoError(t, s.Save(kb))

	b, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"Science": []`)
	assert.Contains(t, string(b), `"Engineering": []`)
	assert.NotContains(t, string(b), "null")
}

func TestTrimmedAndSummarize(t *testing.T) {
	kb := sampleKB()
	kb.RefreshedAt = scraped

	trimmed := Trimmed(kb, 1)
	require.Len(t, trimmed["Commerce"], 1)
	assert.Equal(t, PromptRecord{Title: "SBI PO Recruitment 2025", Organization: "SBI", URL: "https://www.jobyaari.com/sbi-po"}, trimmed["Commerce"][0])
	assert.Empty(t, trimmed["Education"])
	assert.Len(t, Trimmed(kb, 0)["Commerce"], 2)

	st := Summarize(kb)
	assert.Equal(t, 4, st.TotalJobs)
	assert.Equal(t, 2, st.PerCategory["Commerce"])
	assert.Equal(t, 1, st.PerCategory["Uncategorized"])
	require.NotNil(t, st.LastRefresh)
	assert.Equal(t, scraped, *st.LastRefresh)

	assert.Nil(t, Summarize(domain.NewKnowledgeBase()).LastRefresh)
}
