package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/logging"
	"jobyaari-engine/internal/metrics"
	"jobyaari-engine/internal/scrape/util"
)

type Options struct {
	MaxRetries int
	Backoff    Backoff
	Breakers   *BreakerRegistry
	Limiter    *util.HostLimiter
	Logger     *zap.Logger
	Metrics    *metrics.Collector
}

// Controller wraps a Fetcher with per-host politeness limiting, retry with
// exponential backoff and a per-host circuit breaker.
type Controller struct {
	f    Fetcher
	opts Options
	log  *zap.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

func NewController(f Fetcher, opts Options) *Controller {
	if opts.Breakers == nil {
		opts.Breakers = NewBreakerRegistry(BreakerConfig{Logger: opts.Logger})
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Controller{
		f:     f,
		opts:  opts,
		log:   logging.OrNop(opts.Logger),
		sleep: sleepCtx,
		now:   time.Now,
	}
}

func (c *Controller) FetcherName() string { return c.f.Name() }

// Fetch retrieves url and parses it into a document.
func (c *Controller) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	res, err := c.FetchRaw(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, domain.ParseErr(url, err)
	}
	return doc, nil
}

// FetchRaw runs the attempt loop and returns the first 2xx response.
func (c *Controller) FetchRaw(ctx context.Context, url string) (*Response, error) {
	host := util.HostOf(url)
	br := c.opts.Breakers.For(host)

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.FetchErr(url, 0, false, err)
		}
		if !br.Allow() {
			c.opts.Metrics.RecordFetch(host, metrics.OutcomeShortCircuit)
			return nil, domain.FetchErr(url, 0, false, domain.ErrCircuitOpen)
		}
		if err := c.opts.Limiter.WaitURL(ctx, url); err != nil {
			br.Release()
			return nil, domain.FetchErr(url, 0, false, err)
		}

		res, err := c.f.Get(ctx, url)
		ferr, retryAfter := c.judge(url, res, err)
		if ferr == nil {
			br.Success()
			c.opts.Metrics.RecordFetch(host, metrics.OutcomeOK)
			return res, nil
		}
		if ctx.Err() != nil {
			br.Release()
			return nil, domain.FetchErr(url, 0, false, ctx.Err())
		}

		lastErr = ferr
		if !ferr.Retryable {
			// Neutral for the breaker: the failure count and state stay as they were.
			br.Release()
			c.opts.Metrics.RecordFetch(host, metrics.OutcomeError)
			return nil, ferr
		}

		br.Failure()
		c.opts.Metrics.RecordFetch(host, metrics.OutcomeRetryable)
		if attempt == c.opts.MaxRetries {
			break
		}

		delay := c.opts.Backoff.ForRetryAfter(attempt, retryAfter)
		c.log.Warn("fetch failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Int("status", ferr.Status),
			zap.Duration("delay", delay),
			zap.Error(ferr.Err))
		c.opts.Metrics.RecordRetry(host)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, domain.FetchErr(url, 0, false, err)
		}
	}

	return nil, domain.FetchErr(url, statusOf(lastErr), false,
		fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, c.opts.MaxRetries+1, lastErr))
}

// judge classifies one attempt. A nil error means success.
func (c *Controller) judge(url string, res *Response, err error) (*domain.Error, time.Duration) {
	if err != nil {
		return domain.FetchErr(url, 0, true, err), 0
	}
	switch {
	case res.Status >= 200 && res.Status < 300:
		return nil, 0
	case res.Status == http.StatusTooManyRequests:
		hint := ParseRetryAfter(res.Header.Get("Retry-After"), c.now())
		return domain.FetchErr(url, res.Status, true, errors.New("rate limited")), hint
	case res.Status >= 500 || res.Status == http.StatusRequestTimeout:
		return domain.FetchErr(url, res.Status, true, errors.New(http.StatusText(res.Status))), 0
	default:
		return domain.FetchErr(url, res.Status, false, errors.New(http.StatusText(res.Status))), 0
	}
}

func statusOf(err error) int {
	var e *domain.Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
