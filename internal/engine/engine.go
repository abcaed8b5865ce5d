package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/events"
	"jobyaari-engine/internal/kb"
	"jobyaari-engine/internal/logging"
	"jobyaari-engine/internal/metrics"
	"jobyaari-engine/internal/scrape"
	"jobyaari-engine/internal/scrape/jobyaari"
	"jobyaari-engine/internal/store"
)

const (
	FailureUnreachable = "unreachable"
	FailureNoPostings  = "no_postings"
	FailurePersistence = "persistence"
	FailureCancelled   = "cancelled"
)

// CategoryScraper is satisfied by *jobyaari.Source.
type CategoryScraper interface {
	ScrapeCategory(ctx context.Context, cat domain.Category) (jobyaari.CategoryResult, error)
}

type History interface {
	RecordRun(ctx context.Context, r store.Run) error
}

type Deps struct {
	Config  config.Config
	Source  CategoryScraper
	Store   *kb.Store
	History History
	Events  events.Publisher
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// RefreshResult is what a caller of Refresh sees.
type RefreshResult struct {
	Success              bool           `json:"success"`
	Message              string         `json:"message"`
	TotalJobs            int            `json:"total_jobs"`
	PerCategory          map[string]int `json:"per_category"`
	RunID                string         `json:"run_id"`
	StartedAt            time.Time      `json:"started_at"`
	FinishedAt           time.Time      `json:"finished_at"`
	Failure              string         `json:"failure,omitempty"`
	DroppedUncategorized int            `json:"dropped_uncategorized"`
}

// Engine owns the current KnowledgeBase. A refresh builds a new one and
// swaps it in only after it has been saved; a failed refresh changes nothing.
type Engine struct {
	cfg     config.Config
	src     CategoryScraper
	store   *kb.Store
	history History
	events  events.Publisher
	metrics *metrics.Collector
	log     *zap.Logger

	running atomic.Bool
	mu      sync.RWMutex
	current domain.KnowledgeBase

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// New loads the persisted KnowledgeBase. An unreadable file is logged and
// replaced by an empty one in memory; it is not overwritten until a
// refresh succeeds.
func New(d Deps) *Engine {
	e := &Engine{
		cfg:     d.Config,
		src:     d.Source,
		store:   d.Store,
		history: d.History,
		events:  d.Events,
		metrics: d.Metrics,
		log:     logging.OrNop(d.Logger),
		current: domain.NewKnowledgeBase(),
		sleep:   sleepCtx,
		now:     time.Now,
	}
	if e.store != nil {
		loaded, err := e.store.Load()
		if err != nil {
			e.log.Warn("knowledge base not loaded, starting empty", zap.Error(err))
		}
		e.current = loaded
	}
	e.metrics.SetRecords(e.current.Counts())
	return e
}

func (e *Engine) Running() bool { return e.running.Load() }

// KnowledgeBase returns the current mapping. It is never mutated after
// being published, so callers may read it without locking.
func (e *Engine) KnowledgeBase() domain.KnowledgeBase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Trimmed returns at most n records per category with prompt fields only.
func (e *Engine) Trimmed(n int) map[string][]kb.PromptRecord {
	return kb.Trimmed(e.KnowledgeBase(), n)
}

func (e *Engine) Stats() kb.Stats {
	return kb.Summarize(e.KnowledgeBase())
}

// Refresh scrapes every configured category and commits the result.
// Only one refresh runs at a time; an overlapping call returns
// domain.ErrRefreshInProgress.
func (e *Engine) Refresh(ctx context.Context) (RefreshResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return RefreshResult{Message: "a refresh is already running"}, domain.ErrRefreshInProgress
	}
	defer e.running.Store(false)

	res := RefreshResult{RunID: uuid.NewString(), StartedAt: e.now().UTC()}
	log := e.log.With(zap.String("run_id", res.RunID))
	log.Info("refresh started")
	e.publish(res.RunID, events.TypeRefreshStarted, map[string]any{"categories": e.cfg.Source.Categories})

	cats := e.categories()
	results := e.scrapeAll(ctx, res.RunID, cats)

	next := assemble(results, e.cfg.Limits.MaxPerCategory)
	res.TotalJobs = next.Total()
	res.PerCategory = next.Counts()
	for _, r := range results {
		res.DroppedUncategorized += r.DroppedUncategorized
	}

	switch {
	case ctx.Err() != nil:
		res.Failure = FailureCancelled
		res.Message = "refresh cancelled: " + ctx.Err().Error()
	case res.TotalJobs == 0:
		res.Failure, res.Message = emptyRunFailure(results)
	default:
		next.RefreshedAt = e.now().UTC()
		if e.store != nil {
			if err := e.store.Save(next); err != nil {
				res.Failure = FailurePersistence
				res.Message = "could not save knowledge base: " + err.Error()
				break
			}
		}
		e.mu.Lock()
		e.current = next
		e.mu.Unlock()
		res.Success = true
		res.Message = successMessage(res.TotalJobs, results)
	}
	res.FinishedAt = e.now().UTC()
	took := res.FinishedAt.Sub(res.StartedAt)
	e.metrics.RecordRefresh(res.Success, took)
	if res.Success {
		e.metrics.SetRecords(res.PerCategory)
		log.Info("refresh finished", zap.Int("total", res.TotalJobs), zap.Duration("took", took))
	} else {
		log.Warn("refresh failed", zap.String("failure", res.Failure), zap.String("message", res.Message))
	}

	e.recordHistory(res, results, next)
	e.publish(res.RunID, events.TypeRefreshFinished, res)
	return res, nil
}

func (e *Engine) categories() []domain.Category {
	out := make([]domain.Category, 0, len(e.cfg.Source.Categories))
	for _, name := range e.cfg.Source.Categories {
		c, err := domain.ParseCategory(name)
		if err != nil || c == domain.Uncategorized {
			e.log.Warn("skipping unknown category", zap.String("category", name))
			continue
		}
		out = append(out, c)
	}
	return out
}

// scrapeAll keeps results in category order. Sequential runs pause between
// categories; a cancelled context stops before the next fetch.
func (e *Engine) scrapeAll(ctx context.Context, runID string, cats []domain.Category) []jobyaari.CategoryResult {
	results := make([]jobyaari.CategoryResult, len(cats))
	done := func(i int) {
		r := results[i]
		data := map[string]any{"category": r.Category, "records": len(r.Records), "tier": r.Tier}
		if r.Err != nil {
			data["error"] = r.Err.Error()
		}
		e.publish(runID, events.TypeCategoryDone, data)
	}

	if e.cfg.Run.Concurrency <= 1 {
		for i, cat := range cats {
			if i > 0 {
				if err := e.sleep(ctx, e.cfg.InterCategoryDelay()); err != nil {
					return markCancelled(results, cats, i, err)
				}
			}
			results[i] = e.scrapeOne(ctx, cat)
			done(i)
		}
		return results
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Run.Concurrency)
	for i, cat := range cats {
		i, cat := i, cat
		g.Go(func() error {
			r := e.scrapeOne(gctx, cat)
			mu.Lock()
			results[i] = r
			done(i)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) scrapeOne(ctx context.Context, cat domain.Category) jobyaari.CategoryResult {
	if err := ctx.Err(); err != nil {
		return jobyaari.CategoryResult{Category: cat, Records: []domain.JobRecord{}, Err: domain.FetchErr("", 0, false, err)}
	}
	r, err := e.src.ScrapeCategory(ctx, cat)
	if err != nil {
		e.log.Warn("category failed", zap.String("category", string(cat)), zap.Error(err))
		r.Category = cat
		r.Records = []domain.JobRecord{}
		r.Err = err
	}
	return r
}

func markCancelled(results []jobyaari.CategoryResult, cats []domain.Category, from int, err error) []jobyaari.CategoryResult {
	for i := from; i < len(cats); i++ {
		results[i] = jobyaari.CategoryResult{Category: cats[i], Records: []domain.JobRecord{}, Err: domain.FetchErr("", 0, false, err)}
	}
	return results
}

// assemble files records under their assigned category in category order,
// then dedupes and caps each bucket independently.
func assemble(results []jobyaari.CategoryResult, limit int) domain.KnowledgeBase {
	next := domain.NewKnowledgeBase()
	for _, r := range results {
		for _, rec := range r.Records {
			next.Categories[rec.Category] = append(next.Categories[rec.Category], rec)
		}
	}
	for c, recs := range next.Categories {
		recs = scrape.Dedupe(recs)
		if limit > 0 && len(recs) > limit {
			recs = recs[:limit]
		}
		next.Categories[c] = recs
	}
	return next
}

func emptyRunFailure(results []jobyaari.CategoryResult) (string, string) {
	var lastErr error
	for _, r := range results {
		if r.Reachable {
			return FailureNoPostings, "site reachable but no recognizable postings found; the page markup may have changed"
		}
		if r.Err != nil {
			lastErr = r.Err
		}
	}
	msg := "site unreachable: no category page could be fetched"
	if lastErr != nil {
		msg += " (last error: " + lastErr.Error() + ")"
	}
	return FailureUnreachable, msg
}

func successMessage(total int, results []jobyaari.CategoryResult) string {
	var empty []string
	for _, r := range results {
		if len(r.Records) == 0 {
			empty = append(empty, string(r.Category))
		}
	}
	msg := fmt.Sprintf("refreshed %d jobs across %d categories", total, len(results)-len(empty))
	if len(empty) > 0 {
		sort.Strings(empty)
		msg += "; no records for " + strings.Join(empty, ", ")
	}
	return msg
}

func (e *Engine) recordHistory(res RefreshResult, results []jobyaari.CategoryResult, next domain.KnowledgeBase) {
	if e.history == nil {
		return
	}
	run := store.Run{
		ID:         res.RunID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Success:    res.Success,
		Message:    res.Message,
		Failure:    res.Failure,
		Total:      res.TotalJobs,
	}
	for _, r := range results {
		rc := store.RunCategory{
			Category:   string(r.Category),
			SourceURL:  r.SourceURL,
			Tier:       string(r.Tier),
			Candidates: r.Candidates,
			Records:    len(next.Categories[r.Category]),
		}
		if r.Err != nil {
			rc.Error = r.Err.Error()
		}
		run.Categories = append(run.Categories, rc)
	}
	if n := len(next.Categories[domain.Uncategorized]); n > 0 {
		run.Categories = append(run.Categories, store.RunCategory{Category: string(domain.Uncategorized), Records: n})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.history.RecordRun(ctx, run); err != nil {
		e.log.Warn("run history not recorded", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

func (e *Engine) publish(runID, typ string, data any) {
	if e.events == nil {
		return
	}
	e.events.Publish(events.MakeEvent(runID, typ, data))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
