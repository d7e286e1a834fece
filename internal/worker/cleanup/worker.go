// Package cleanup runs the periodic sweep of expired verification state.
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes expired state and reports how many records it dropped.
type Sweeper interface {
	Cleanup(ctx context.Context) (int, error)
}

type Worker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker returns a worker that sweeps every interval (5 minutes when zero).
func NewWorker(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sweeper: sweeper, interval: interval, logger: logger}
}

// Start sweeps on a fixed ticker until ctx is cancelled. It always returns nil
// so it can run under an errgroup without tearing the server down.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("verification cleanup started", slog.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("verification cleanup stopped")
			return nil
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Errors are logged, never returned.
func (w *Worker) RunOnce(ctx context.Context) int {
	start := time.Now()
	removed, err := w.sweeper.Cleanup(ctx)
	if err != nil {
		w.logger.Error("verification cleanup failed",
			slog.Int("removed", removed),
			slog.String("error", err.Error()),
		)
		return removed
	}
	if removed > 0 {
		w.logger.Info("verification cleanup finished",
			slog.Int("removed", removed),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	return removed
}
