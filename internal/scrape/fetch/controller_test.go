package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/scrape/util"
)

type sleeps struct{ got []time.Duration }

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.got = append(s.got, d)
	return ctx.Err()
}

func newTestController(t *testing.T, maxRetries, threshold int) (*Controller, *sleeps) {
	t.Helper()
	c := NewController(NewHTTPFetcher(5*time.Second, Headers{UserAgent: "test-agent", Referer: "https://www.jobyaari.com"}), Options{
		MaxRetries: maxRetries,
		Backoff:    Backoff{Base: 100 * time.Millisecond, Max: 10 * time.Second},
		Breakers:   NewBreakerRegistry(BreakerConfig{Threshold: threshold, Cooldown: time.Minute}),
	})
	s := &sleeps{}
	c.sleep = s.sleep
	return c, s
}

// scripted serves the given statuses in order, then repeats the last one.
func scripted(t *testing.T, hits *int32, statuses ...int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(hits, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "https://www.jobyaari.com", r.Header.Get("Referer"))
		if statuses[n] == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "2")
		}
		w.WriteHeader(statuses[n])
		_, _ = w.Write([]byte(`<html><body><h2>ok</h2></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSuccess(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 200)
	c, s := newTestController(t, 3, 3)

	doc, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Find("h2").Text())
	assert.Equal(t, int32(1), hits)
	assert.Empty(t, s.got)
}

func TestFetchRetriesTransient(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 500, 503, 200)
	c, s := newTestController(t, 3, 10)

	_, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, s.got)
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 429, 200)
	c, s := newTestController(t, 3, 10)

	_, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, s.got, 1)
	assert.Equal(t, 2*time.Second, s.got[0])
}

func TestFetchNonRetryableStatus(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 404)
	c, s := newTestController(t, 3, 3)

	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindFetch))
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 404, de.Status)
	assert.Equal(t, int32(1), hits)
	assert.Empty(t, s.got)
}

func TestNonRetryableStatusLeavesBreakerCount(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 500, 500, 404, 500, 200)
	c, _ := newTestController(t, 0, 3)

	for i := 0; i < 4; i++ {
		_, err := c.Fetch(context.Background(), srv.URL)
		require.Error(t, err)
	}
	br := c.opts.Breakers.For(util.HostOf(srv.URL))
	assert.Equal(t, StateOpen, br.State())
	assert.Equal(t, 3, br.Snapshot().Failures)

	_, err := c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, int32(4), hits)
}

func TestNonRetryableTrialKeepsBreakerHalfOpen(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 500, 404, 200)
	now := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	c := NewController(NewHTTPFetcher(5*time.Second, Headers{UserAgent: "test-agent", Referer: "https://www.jobyaari.com"}), Options{
		Breakers: NewBreakerRegistry(BreakerConfig{Threshold: 1, Cooldown: time.Minute, Now: func() time.Time { return now }}),
	})
	br := c.opts.Breakers.For(util.HostOf(srv.URL))

	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.Equal(t, StateOpen, br.State())

	now = now.Add(2 * time.Minute)
	_, err = c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, StateHalfOpen, br.State())
	assert.Equal(t, 1, br.Snapshot().Failures)

	_, err = c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, br.State())
	assert.Equal(t, int32(3), hits)
}

func TestFetchRetriesExhausted(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 502)
	c, _ := newTestController(t, 2, 10)

	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.Equal(t, int32(3), hits)
}

func TestFetchShortCircuitsWhenOpen(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 500)
	c, _ := newTestController(t, 0, 3)

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), srv.URL)
		require.Error(t, err)
	}
	require.Equal(t, int32(3), hits)

	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, int32(3), hits, "no network call while open")
}

func TestFetchStopsRetryingWhenBreakerOpensMidLoop(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 500)
	c, _ := newTestController(t, 5, 2)

	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits)
}

func TestFetchCancelled(t *testing.T) {
	var hits int32
	srv := scripted(t, &hits, 200)
	c, _ := newTestController(t, 3, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), hits)
}

func TestFetchConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, s := newTestController(t, 1, 10)
	_, err := c.Fetch(context.Background(), url)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.Len(t, s.got, 1)
}
