package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobyaari-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task immediately, then on each tick until ctx is done. Ticks
// that arrive while the task is still running are dropped by the ticker.
func Every(ctx context.Context, interval time.Duration, name string, log *zap.Logger, task Task) {
	log = logging.OrNop(log).With(zap.String("task", name))
	if interval <= 0 {
		log.Info("scheduler disabled")
		return
	}

	run := func() {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			log.Warn("scheduled task failed", zap.Error(err))
		}
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
