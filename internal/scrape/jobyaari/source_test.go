package jobyaari

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/scrape/discover"
	"jobyaari-engine/internal/scrape/fetch"
)

const base = "https://www.jobyaari.com"

const commercePage = `<html><body>
<div class="job-card"><h2><a href="/sbi-po-2025">SBI PO Recruitment 2025</a></h2><p>2000 Posts, Pay ₹57,000/month, Age 21-30 years, Graduate</p></div>
<div class="job-card"><h2><a href="/sbi-po-2025/">SBI PO Recruitment 2025 Corrigendum</a></h2><p>different snippet</p></div>
<div class="job-card"><h2><a href="/driver">Driver Posts Open</a></h2><p>12 posts</p></div>
<div class="job-card"><h2>Sponsored</h2><a href="/ad">ad</a></div>
<div class="job-card"><p>no title here at all</p></div>
</body></html>`

const listingPage = `<html><body><ul>
<li class="job-item"><h3><a href="/kvs-tgt">KVS TGT Recruitment</a></h3><span>Education</span></li>
<li class="job-item"><h3><a href="/nhai-ae">Assistant Engineer Posts</a></h3><span>Engineering</span></li>
</ul></body></html>`

type fakeSite struct {
	pages map[string]string
	calls []string
}

func (f *fakeSite) Fetch(_ context.Context, u string) (*goquery.Document, error) {
	f.calls = append(f.calls, u)
	body, ok := f.pages[u]
	if !ok {
		return nil, domain.FetchErr(u, http.StatusNotFound, false, errors.New("Not Found"))
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

func newSource(t *testing.T, cfg config.Config, f DocFetcher) *Source {
	t.Helper()
	s, err := New(cfg, f, nil, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 3, 20, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestScrapeCategoryNestedCardParts(t *testing.T) {
	page := `<html><body>
<div class="job-card">
  <div class="job-title"><h2><a href="/sbi-po-2025">SBI PO Recruitment 2025</a></h2></div>
  <div class="job-details">2000 Posts, Pay ₹57,000/month, Age 21-30 years, Graduate</div>
</div>
<div class="job-card">
  <div class="job-title"><h2><a href="/ibps-clerk">IBPS Clerk Notification</a></h2></div>
  <div class="job-details">6128 Posts, Age 20-28 years, Graduate</div>
</div>
</body></html>`
	site := &fakeSite{pages: map[string]string{base + "/category/commerce": page}}
	s := newSource(t, config.Defaults(), site)

	res, err := s.ScrapeCategory(context.Background(), domain.Commerce)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Candidates)
	assert.Zero(t, res.Skipped)

	require.Len(t, res.Records, 2)
	sbi := res.Records[0]
	assert.Equal(t, "SBI PO Recruitment 2025", sbi.Title)
	assert.Equal(t, "2000", sbi.Vacancies)
	assert.Contains(t, sbi.Salary, "57,000")
	assert.Equal(t, "21-30 years", sbi.Age)
	assert.Equal(t, "Graduate", sbi.Qualification)
	assert.Equal(t, "6128", res.Records[1].Vacancies)
}

func TestCategoryURLs(t *testing.T) {
	s := newSource(t, config.Defaults(), &fakeSite{})
	assert.Equal(t, []string{
		base + "/category/science",
		base + "/science",
		base + "/tag/science",
	}, s.CategoryURLs(domain.Science))
	assert.Equal(t, base+"/", s.ListingURL())
}

func TestScrapeCategoryPipeline(t *testing.T) {
	site := &fakeSite{pages: map[string]string{base + "/commerce": commercePage}}
	s := newSource(t, config.Defaults(), site)

	res, err := s.ScrapeCategory(context.Background(), domain.Commerce)
	require.NoError(t, err)

	assert.Equal(t, []string{base + "/category/commerce", base + "/commerce"}, site.calls)
	assert.Equal(t, base+"/commerce", res.SourceURL)
	assert.Equal(t, discover.TierSelector, res.Tier)
	assert.True(t, res.Reachable)
	assert.Equal(t, 5, res.Candidates)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 1, res.Duplicates)

	require.Len(t, res.Records, 2)
	sbi := res.Records[0]
	assert.Equal(t, "SBI PO Recruitment 2025", sbi.Title)
	assert.Equal(t, "2000", sbi.Vacancies)
	assert.Contains(t, sbi.Salary, "57,000")
	assert.Equal(t, "21-30 years", sbi.Age)
	assert.Equal(t, "Graduate", sbi.Qualification)
	assert.Equal(t, domain.Commerce, sbi.Category)

	// no keyword hit, kept under the page it came from
	assert.Equal(t, "Driver Posts Open", res.Records[1].Title)
	assert.Equal(t, domain.Commerce, res.Records[1].Category)
}

func TestKeywordOverridesPageCategory(t *testing.T) {
	site := &fakeSite{pages: map[string]string{base + "/category/science": commercePage}}
	s := newSource(t, config.Defaults(), site)

	res, err := s.ScrapeCategory(context.Background(), domain.Science)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, domain.Commerce, res.Records[0].Category)
	assert.Equal(t, domain.Science, res.Records[1].Category)
}

func TestStrictModeDropsUncategorized(t *testing.T) {
	cfg := config.Defaults()
	cfg.Classify.PreferPageCategory = false
	cfg.Run.DropUncategorized = true
	site := &fakeSite{pages: map[string]string{base + "/category/commerce": commercePage}}
	s := newSource(t, cfg, site)

	res, err := s.ScrapeCategory(context.Background(), domain.Commerce)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.DroppedUncategorized)
}

func TestRecordsCappedPerCategory(t *testing.T) {
	cfg := config.Defaults()
	cfg.Limits.MaxPerCategory = 1
	site := &fakeSite{pages: map[string]string{base + "/category/commerce": commercePage}}
	s := newSource(t, cfg, site)

	res, err := s.ScrapeCategory(context.Background(), domain.Commerce)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "SBI PO Recruitment 2025", res.Records[0].Title)
}

func TestListingFallbackFiltersByCategoryName(t *testing.T) {
	site := &fakeSite{pages: map[string]string{base + "/": listingPage}}
	s := newSource(t, config.Defaults(), site)

	res, err := s.ScrapeCategory(context.Background(), domain.Education)
	require.NoError(t, err)
	assert.Len(t, site.calls, 4)
	assert.Equal(t, base+"/", res.SourceURL)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "KVS TGT Recruitment", res.Records[0].Title)
	assert.Equal(t, base+"/kvs-tgt", res.Records[0].URL)
	assert.Equal(t, domain.Education, res.Records[0].Category)
}

func TestCategoryUnreachable(t *testing.T) {
	s := newSource(t, config.Defaults(), &fakeSite{})

	res, err := s.ScrapeCategory(context.Background(), domain.Engineering)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindFetch))
	assert.Equal(t, err, res.Err)
	assert.False(t, res.Reachable)
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
}

func TestScrapeThroughController(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/category/commerce" {
			http.NotFound(w, r)
			return
		}
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(commercePage))
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Source.BaseURL = srv.URL
	ctl := fetch.NewController(fetch.NewHTTPFetcher(5*time.Second, fetch.Headers{UserAgent: config.DefaultUserAgent, Referer: srv.URL}), fetch.Options{MaxRetries: 0})
	s := newSource(t, cfg, ctl)

	res, err := s.ScrapeCategory(context.Background(), domain.Commerce)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, srv.URL+"/sbi-po-2025", res.Records[0].URL)
}
