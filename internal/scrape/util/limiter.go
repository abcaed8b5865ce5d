package util

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter spaces requests per hostname so the source never sees more
// than the configured rate from this process. A non-positive rate disables
// limiting.
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	r := rate.Limit(reqPerSec)
	if reqPerSec <= 0 {
		r = rate.Inf
	}
	return &HostLimiter{m: make(map[string]*rate.Limiter), r: r, b: burst}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	lim, ok := hl.m[host]
	if !ok {
		lim = rate.NewLimiter(hl.r, hl.b)
		hl.m[host] = lim
	}
	return lim
}

// WaitURL blocks until the host of raw may be contacted or ctx ends.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	if hl == nil {
		return nil
	}
	return hl.limiterFor(HostOf(raw)).Wait(ctx)
}

// Hosts lists the hosts seen so far.
func (hl *HostLimiter) Hosts() []string {
	if hl == nil {
		return nil
	}
	hl.mu.Lock()
	defer hl.mu.Unlock()
	out := make([]string, 0, len(hl.m))
	for h := range hl.m {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
