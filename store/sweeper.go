package store

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper removes sessions older than ttl every interval until ctx is
// cancelled. Sweep errors are logged and the loop continues.
func RunSweeper(ctx context.Context, s SessionStore, ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		slog.Warn("store: sweeper disabled", "ttl", ttl, "interval", interval)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			SweepOnce(ctx, s, now.Add(-ttl))
		}
	}
}

// SweepOnce runs a single sweep with the given cutoff and logs the outcome.
func SweepOnce(ctx context.Context, s SessionStore, before time.Time) int {
	n, err := s.Sweep(ctx, before)
	if err != nil {
		slog.Error("store: sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.Info("store: swept expired sessions", "removed", n, "cutoff", before.Format(time.RFC3339))
	}
	return n
}
