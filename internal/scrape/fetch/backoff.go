package fetch

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Backoff computes the wait before retry k (0-based): Base*2^k capped at Max,
// plus a uniform jitter in [0, Jitter).
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

// Delay without jitter. Non-decreasing in k and never above Max.
func (b Backoff) Delay(k int) time.Duration {
	if k < 0 {
		k = 0
	}
	d := float64(b.Base) * math.Pow(2, float64(k))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

func (b Backoff) WithJitter(k int) time.Duration {
	d := b.Delay(k)
	if b.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(b.Jitter)))
	}
	return d
}

// ForRetryAfter prefers the server's Retry-After hint when it asks for a
// longer wait, still capped at Max.
func (b Backoff) ForRetryAfter(k int, hint time.Duration) time.Duration {
	d := b.WithJitter(k)
	if hint > d {
		d = hint
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// ParseRetryAfter accepts delta-seconds or an HTTP date.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
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
