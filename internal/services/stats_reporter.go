package services

import (
	"context"
	"log/slog"
	"time"

	"lrs-tracker/internal/dashboard"
	"lrs-tracker/internal/models"
	"lrs-tracker/internal/repository"
)

// StatsSource computes summary statistics for a scope.
type StatsSource interface {
	GetStats(ctx context.Context, scope dashboard.Scope) (models.SummaryStats, error)
}

// TotalRecorder publishes the last observed statement total of a scope.
type TotalRecorder interface {
	Record(ctx context.Context, scope string, total int64)
}

// StartStatsReporter starts a background goroutine that counts statements
// globally and, when stores is non-nil, per LRS, once at start and then on
// every tick. The returned channel is closed when the worker has stopped
// after ctx is done.
func StartStatsReporter(ctx context.Context, interval time.Duration, src StatsSource, stores repository.StoreReader, rec TotalRecorder) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()

		reportStats(ctx, src, stores, rec)
		for {
			select {
			case <-ctx.Done():
				slog.Info("stats reporter: shutting down")
				return
			case <-ticker.C:
				reportStats(ctx, src, stores, rec)
			}
		}
	}()
	return done
}

func reportStats(ctx context.Context, src StatsSource, stores repository.StoreReader, rec TotalRecorder) {
	scopes := []dashboard.Scope{dashboard.Global()}
	if stores != nil {
		list, err := stores.List(ctx)
		if err != nil {
			slog.WarnContext(ctx, "stats reporter: failed to list stores", "error", err)
		}
		for _, s := range list {
			scopes = append(scopes, dashboard.ForStore(s.ID.Hex()))
		}
	}

	for _, scope := range scopes {
		if ctx.Err() != nil {
			return
		}
		stats, err := src.GetStats(ctx, scope)
		if err != nil {
			slog.WarnContext(ctx, "stats reporter: failed to count statements", "scope", scope.String(), "error", err)
			continue
		}
		rec.Record(ctx, scope.String(), stats.StatementCount)
	}
}
