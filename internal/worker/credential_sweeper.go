package worker

import (
	"context"
	"log/slog"
	"time"
)

// credentialStore is the slice of the credential cache the sweeper needs.
type credentialStore interface {
	Sweep(now time.Time) int
	Len() int
}

// CredentialSweeper periodically evicts expired data-plane credentials so
// contracts that went quiet do not pin dead entries forever.
type CredentialSweeper struct {
	credentials credentialStore
	interval    time.Duration
	logger      *slog.Logger
}

func NewCredentialSweeper(credentials credentialStore, interval time.Duration, logger *slog.Logger) *CredentialSweeper {
	return &CredentialSweeper{
		credentials: credentials,
		interval:    interval,
		logger:      logger,
	}
}

func (w *CredentialSweeper) Start(ctx context.Context) {
	w.logger.Info("credential sweeper started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("credential sweeper stopping")
			return
		case <-ticker.C:
			if evicted := w.credentials.Sweep(time.Now()); evicted > 0 {
				w.logger.Info("swept expired credentials",
					"evicted", evicted,
					"remaining", w.credentials.Len(),
				)
			}
		}
	}
}
