package fetch

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobyaari-engine/internal/logging"
)

// BreakerState represents the state of a per-host circuit breaker.
type BreakerState int

const (
	// StateClosed lets every request through.
	StateClosed BreakerState = iota
	// StateOpen rejects requests until the cooldown has elapsed.
	StateOpen
	// StateHalfOpen lets exactly one trial request through.
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

type BreakerConfig struct {
	Name          string
	Threshold     int
	Cooldown      time.Duration
	OnStateChange func(name string, from, to BreakerState)
	Logger        *zap.Logger
	Now           func() time.Time
}

// BreakerSnapshot is a read-only view for status endpoints.
type BreakerSnapshot struct {
	Host        string    `json:"host"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	OpenUntil   time.Time `json:"open_until,omitempty"`
}

type Breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	expiry      time.Time
	trial       bool
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 90 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Logger = logging.OrNop(cfg.Logger)
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Allow reports whether a request may proceed. An open breaker whose
// cooldown has elapsed moves to half-open and admits a single trial.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.cfg.Now().Before(b.expiry) {
			return false
		}
		b.setState(StateHalfOpen)
		b.trial = true
		return true
	case StateHalfOpen:
		if b.trial {
			return false
		}
		b.trial = true
		return true
	}
	return false
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.trial = false
	b.setState(StateClosed)
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.cfg.Now()
	b.failures++
	b.lastFailure = now
	b.trial = false

	if b.state == StateHalfOpen || b.failures >= b.cfg.Threshold {
		b.expiry = now.Add(b.cfg.Cooldown)
		b.setState(StateOpen)
	}
}

// Release gives back a half-open trial slot when the request never reached
// the host (cancelled or rate-limiter wait failed).
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := BreakerSnapshot{
		Host:        b.cfg.Name,
		State:       b.state.String(),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
	if b.state == StateOpen {
		s.OpenUntil = b.expiry
	}
	return s
}

// setState must be called with mu held.
func (b *Breaker) setState(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to

	b.cfg.Logger.Info("circuit breaker state changed",
		zap.String("host", b.cfg.Name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("failures", b.failures))

	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

// BreakerRegistry hands out one breaker per host.
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	base     BreakerConfig
}

func NewBreakerRegistry(base BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{breakers: make(map[string]*Breaker), base: base}
}

func (r *BreakerRegistry) For(host string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[host]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[host]; ok {
		return b
	}
	cfg := r.base
	cfg.Name = host
	b = NewBreaker(cfg)
	r.breakers[host] = b
	return b
}

func (r *BreakerRegistry) Snapshots() []BreakerSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BreakerSnapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}
