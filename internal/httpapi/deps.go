package httpapi

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/domain"
	"jobyaari-engine/internal/engine"
	"jobyaari-engine/internal/events"
	"jobyaari-engine/internal/kb"
	"jobyaari-engine/internal/poll"
	"jobyaari-engine/internal/scrape/fetch"
	"jobyaari-engine/internal/store"
)

// KnowledgeView is the read side of the engine.
type KnowledgeView interface {
	KnowledgeBase() domain.KnowledgeBase
	Stats() kb.Stats
	Trimmed(n int) map[string][]kb.PromptRecord
}

type Refresher interface {
	RunOnce(ctx context.Context) (engine.RefreshResult, error)
	Status() poll.Status
}

type BreakerView interface {
	Snapshots() []fetch.BreakerSnapshot
}

type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

type Deps struct {
	// Ctx bounds refreshes started over HTTP; they outlive the request.
	Ctx context.Context

	KB       KnowledgeView
	Refresh  Refresher
	Runs     RunLister   // optional
	Breakers BreakerView // optional
	Hub      *events.Hub

	// Atomic store of config.Config
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Token returns the bearer token for mutating routes; "" disables auth.
	Token func() string

	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

func (d Deps) ctx() context.Context {
	if d.Ctx != nil {
		return d.Ctx
	}
	return context.Background()
}
