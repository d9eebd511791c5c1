package dashboard

import (
	"context"
	"time"

	"lrs-tracker/internal/models"
)

// DayCount is one group of a per-day aggregation.
type DayCount struct {
	Day   time.Time
	Count int64
}

// Aggregator is the aggregation capability a statement store exposes.
// Implementations push filtering and grouping down to the backing store.
// Days are UTC calendar days and results are sorted ascending by day.
type Aggregator interface {
	// CountStatements counts statements matching the filter.
	CountStatements(ctx context.Context, f Filter) (int64, error)

	// EarliestTimestamp returns the timestamp of the oldest matching
	// statement. The bool is false when nothing matches.
	EarliestTimestamp(ctx context.Context, f Filter) (time.Time, bool, error)

	// CountByDay groups matching statements by day and counts each group.
	CountByDay(ctx context.Context, f Filter) ([]DayCount, error)

	// CountDistinctActors counts distinct dedup keys of the variant in f.Kind.
	CountDistinctActors(ctx context.Context, f Filter) (int64, error)

	// CountDistinctActorsByDay counts distinct dedup keys of the variant in
	// f.Kind within each day.
	CountDistinctActorsByDay(ctx context.Context, f Filter) ([]DayCount, error)
}

// Scanner is the minimal capability of a store that cannot aggregate. Scan
// calls fn for every statement matching the store and timestamp parts of
// the filter; the identity variant is left to the caller.
type Scanner interface {
	Scan(ctx context.Context, f Filter, fn func(models.Statement) error) error
}
