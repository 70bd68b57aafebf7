package worker

import (
	"context"
	"log/slog"
	"time"
)

type scheduleStore interface {
	Prune(now time.Time) int
	Len() int
}

// SchedulePruner drops refresh schedules for partner and material
// combinations that have gone idle, so a pruned combination starts over with
// an immediate backend pull on its next request.
type SchedulePruner struct {
	schedules scheduleStore
	interval  time.Duration
	logger    *slog.Logger
}

func NewSchedulePruner(schedules scheduleStore, interval time.Duration, logger *slog.Logger) *SchedulePruner {
	return &SchedulePruner{
		schedules: schedules,
		interval:  interval,
		logger:    logger,
	}
}

func (w *SchedulePruner) Start(ctx context.Context) {
	w.logger.Info("schedule pruner started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("schedule pruner stopping")
			return
		case <-ticker.C:
			if pruned := w.schedules.Prune(time.Now()); pruned > 0 {
				w.logger.Info("pruned idle refresh schedules",
					"pruned", pruned,
					"remaining", w.schedules.Len(),
				)
			}
		}
	}
}
