package jobyaari

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"jobyaari-engine/internal/classify"
	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/logging"
	"jobyaari-engine/internal/metrics"
	"jobyaari-engine/internal/scrape"
	"jobyaari-engine/internal/scrape/discover"
	"jobyaari-engine/internal/scrape/extract"
	"jobyaari-engine/internal/scrape/util"
)

// DocFetcher is satisfied by *fetch.Controller.
type DocFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// CategoryResult is what one category page contributed to a run.
type CategoryResult struct {
	Category  domain.Category
	SourceURL string
	Tier      discover.Tier
	// Reachable is true when at least one page for the category was fetched.
	Reachable            bool
	Candidates           int
	Skipped              int
	Rejected             int
	Duplicates           int
	DroppedUncategorized int
	Records              []domain.JobRecord
	Err                  error
}

type Source struct {
	f          DocFetcher
	cfg        config.Config
	cascade    discover.Cascade
	ext        *extract.Extractor
	validator  *scrape.Validator
	classifier classify.Classifier
	policy     classify.Policy
	log        *zap.Logger
	metrics    *metrics.Collector
	now        func() time.Time
}

func New(cfg config.Config, f DocFetcher, log *zap.Logger, m *metrics.Collector) (*Source, error) {
	ext, err := extract.New(cfg.Source.BaseURL, cfg.Limits.SnippetChars)
	if err != nil {
		return nil, err
	}
	return &Source{
		f:          f,
		cfg:        cfg,
		cascade:    discover.CascadeFromConfig(cfg),
		ext:        ext,
		validator:  scrape.NewValidator(cfg),
		classifier: classify.NewKeywordClassifier(cfg.Classify.Rules),
		policy:     classify.PolicyFromConfig(cfg),
		log:        logging.OrNop(log),
		metrics:    m,
		now:        time.Now,
	}, nil
}

func (s *Source) Name() string { return "jobyaari" }

// CategoryURLs lists the candidate pages for cat in the order they are tried.
func (s *Source) CategoryURLs(cat domain.Category) []string {
	base := strings.TrimRight(s.cfg.Source.BaseURL, "/")
	out := make([]string, 0, len(s.cfg.Source.CategoryPaths))
	for _, tpl := range s.cfg.Source.CategoryPaths {
		p := strings.ReplaceAll(tpl, "{slug}", cat.Slug())
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, base+p)
	}
	return out
}

func (s *Source) ListingURL() string {
	p := s.cfg.Source.ListingPath
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(s.cfg.Source.BaseURL, "/") + p
}

// ScrapeCategory fetches the first category page that yields candidates,
// falling back to the listing page filtered by category name. A fetch
// failure is returned in the result and as the error; the records of a
// failed category are always empty.
func (s *Source) ScrapeCategory(ctx context.Context, cat domain.Category) (CategoryResult, error) {
	res := CategoryResult{Category: cat, Records: []domain.JobRecord{}}

	found, err := s.locate(ctx, cat, &res)
	if err != nil {
		res.Err = err
		return res, err
	}
	s.metrics.RecordDiscoveryTier(string(found.Tier))
	res.Tier = found.Tier
	res.Candidates = len(found.Nodes)

	now := s.now()
	var kept []domain.JobRecord
	for _, node := range found.Nodes {
		rec, err := s.ext.Extract(node, now)
		if err != nil {
			res.Skipped++
			continue
		}
		if keep, reason := s.validator.ShouldKeepRecord(rec, found.Tier); !keep {
			res.Rejected++
			s.metrics.RecordRejected(reason)
			s.log.Debug("record rejected", zap.String("title", rec.Title), zap.String("reason", reason))
			continue
		}
		kept = append(kept, rec)
	}

	deduped := scrape.Dedupe(kept)
	res.Duplicates = len(kept) - len(deduped)

	for _, rec := range deduped {
		c, keep := s.policy.Assign(s.classifier, rec, cat)
		if !keep {
			res.DroppedUncategorized++
			continue
		}
		rec.Category = c
		res.Records = append(res.Records, rec)
		if limit := s.cfg.Limits.MaxPerCategory; limit > 0 && len(res.Records) >= limit {
			break
		}
	}

	s.log.Info("category scraped",
		zap.String("category", string(cat)),
		zap.String("url", res.SourceURL),
		zap.String("tier", string(res.Tier)),
		zap.Int("candidates", res.Candidates),
		zap.Int("skipped", res.Skipped),
		zap.Int("rejected", res.Rejected),
		zap.Int("records", len(res.Records)))
	return res, nil
}

// locate walks the category page variants, then the listing page.
func (s *Source) locate(ctx context.Context, cat domain.Category, res *CategoryResult) (discover.Result, error) {
	var lastErr error
	for _, u := range s.CategoryURLs(cat) {
		doc, err := s.f.Fetch(ctx, u)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || errors.Is(err, domain.ErrCircuitOpen) {
				return discover.Result{}, err
			}
			s.log.Debug("category page unavailable", zap.String("url", u), zap.Error(err))
			continue
		}
		res.Reachable = true
		found := discover.FindCandidates(doc, s.cascade)
		if len(found.Nodes) > 0 {
			res.SourceURL = u
			return found, nil
		}
	}

	listing := s.ListingURL()
	doc, err := s.f.Fetch(ctx, listing)
	if err != nil {
		if lastErr != nil && !res.Reachable {
			err = fmt.Errorf("%w (category pages: %v)", err, lastErr)
		}
		return discover.Result{}, err
	}
	res.Reachable = true
	res.SourceURL = listing

	found := discover.FindCandidates(doc, s.cascade)
	found.Nodes = mentioning(found.Nodes, string(cat))
	return found, nil
}

func mentioning(nodes []*goquery.Selection, name string) []*goquery.Selection {
	needle := util.FoldText(name)
	out := make([]*goquery.Selection, 0, len(nodes))
	for _, n := range nodes {
		if strings.Contains(util.FoldText(n.Text()), needle) {
			out = append(out, n)
		}
	}
	return out
}
