package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"jobyaari-engine/internal/engine"
	"jobyaari-engine/internal/logging"
	"jobyaari-engine/internal/scheduler"
)

// Status is the last known state of scheduled and manual refreshes.
type Status struct {
	Running   bool   `json:"running"`
	LastRunAt string `json:"last_run_at"`
	LastOkAt  string `json:"last_ok_at"`
	LastError string `json:"last_error"`
	LastTotal int    `json:"last_total"`
	LastRunID string `json:"last_run_id"`
}

// Refresher is satisfied by *engine.Engine. Running is the source of truth
// for whether a refresh is in flight.
type Refresher interface {
	Refresh(ctx context.Context) (engine.RefreshResult, error)
	Running() bool
}

// Poller runs refreshes and tracks their status. Manual refreshes go
// through RunOnce too so the status stays accurate.
type Poller struct {
	r      Refresher
	log    *zap.Logger
	mu     sync.Mutex // serializes status updates
	status atomic.Value
}

func New(r Refresher, log *zap.Logger) *Poller {
	p := &Poller{r: r, log: logging.OrNop(log)}
	p.status.Store(Status{})
	return p
}

func (p *Poller) Status() Status {
	st := p.status.Load().(Status)
	st.Running = p.r.Running()
	return st
}

// RunOnce refreshes and records the outcome. A refused call (another
// refresh in flight) returns its error and leaves the status alone.
func (p *Poller) RunOnce(ctx context.Context) (engine.RefreshResult, error) {
	calledAt := time.Now().UTC()
	res, err := p.r.Refresh(ctx)
	if err != nil {
		return res, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status.Load().(Status)
	st.LastRunAt = calledAt.Format(time.RFC3339)
	if !res.StartedAt.IsZero() {
		st.LastRunAt = res.StartedAt.UTC().Format(time.RFC3339)
	}
	switch {
	case res.Success:
		st.LastError = ""
		st.LastOkAt = res.FinishedAt.Format(time.RFC3339)
		st.LastTotal = res.TotalJobs
	default:
		st.LastError = res.Message
	}
	st.LastRunID = res.RunID
	p.status.Store(st)
	return res, nil
}

// Start refreshes on every interval until ctx is done. A non-positive
// interval disables scheduling.
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	go scheduler.Every(ctx, interval, "refresh", p.log, func(ctx context.Context) error {
		res, err := p.RunOnce(ctx)
		if err != nil {
			return err
		}
		p.log.Info("scheduled refresh done",
			zap.Bool("success", res.Success),
			zap.Int("total", res.TotalJobs),
			zap.String("message", res.Message))
		return nil
	})
}
