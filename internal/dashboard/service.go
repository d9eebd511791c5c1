// Package dashboard computes LRS dashboard analytics: statement totals,
// per-day averages, distinct actor counts and gap-free daily series.
package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"lrs-tracker/internal/models"
)

const tracerName = "lrs-tracker/dashboard"

// Operation names used for spans, metrics and errors.
const (
	OpStats      = "stats"
	OpGraph      = "graph"
	OpActorCount = "actor_count"
)

// MetricsRecorder receives one sample per facade call.
type MetricsRecorder interface {
	RecordRequest(ctx context.Context, op, status string, duration time.Duration)
}

// Service is the dashboard facade. It keeps no state between calls and
// re-queries the store every time.
type Service struct {
	agg     Aggregator
	now     func() time.Time
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics MetricsRecorder
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService builds the facade over a store's aggregation capability.
func NewService(agg Aggregator, opts ...Option) *Service {
	s := &Service{
		agg:    agg,
		now:    time.Now,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Graph is a dense daily series together with the range it covers.
type Graph struct {
	Range  DateRange
	Series models.Series
}

// GetStats returns the statement total and the average per active day.
func (s *Service) GetStats(ctx context.Context, scope Scope) (stats models.SummaryStats, err error) {
	ctx, finish := s.begin(ctx, OpStats, scope)
	defer func() { finish(err) }()

	f := scope.Filter()
	var (
		count    int64
		earliest time.Time
		found    bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.agg.CountStatements(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		earliest, found, err = s.agg.EarliestTimestamp(gctx, f)
		return err
	})
	if err := waitContext(ctx, g); err != nil {
		return models.SummaryStats{}, queryError(ctx, OpStats, scope, nil, err)
	}

	var days int64
	if found {
		days = ActiveDays(earliest, s.now())
	}

	return models.SummaryStats{
		StatementCount:     count,
		StatementAvgPerDay: AverageCount(count, days),
	}, nil
}

// GetGraphData returns one bucket per day between start and end inclusive.
// Nil bounds default as described on NormalizeRange.
func (s *Service) GetGraphData(ctx context.Context, scope Scope, start, end *time.Time) (graph Graph, err error) {
	ctx, finish := s.begin(ctx, OpGraph, scope)
	defer func() { finish(err) }()

	rng := NormalizeRange(start, end, s.now())
	if rng.Empty() {
		return Graph{Range: rng, Series: FillGaps(nil, rng)}, nil
	}

	buckets, err := s.aggregate(ctx, scope, rng)
	if err != nil {
		return Graph{}, queryError(ctx, OpGraph, scope, &rng, err)
	}

	return Graph{Range: rng, Series: FillGaps(buckets, rng)}, nil
}

// GetActorCount returns the number of distinct actors in scope, counted per
// identity variant and summed.
func (s *Service) GetActorCount(ctx context.Context, scope Scope) (total int64, err error) {
	ctx, finish := s.begin(ctx, OpActorCount, scope)
	defer func() { finish(err) }()

	counts := make([]int64, len(IdentityKinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range IdentityKinds {
		f := scope.Filter().WithKind(kind)
		g.Go(func() error {
			n, err := s.agg.CountDistinctActors(gctx, f)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := waitContext(ctx, g); err != nil {
		return 0, queryError(ctx, OpActorCount, scope, nil, err)
	}

	for _, n := range counts {
		total += n
	}
	return total, nil
}

// aggregate returns buckets for the days of rng that have statements,
// ascending by day.
func (s *Service) aggregate(ctx context.Context, scope Scope, rng DateRange) ([]models.DailyBucket, error) {
	f := rng.Apply(scope.Filter())

	var totals []DayCount
	perKind := make([][]DayCount, len(IdentityKinds))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.agg.CountByDay(gctx, f)
		return err
	})
	for i, kind := range IdentityKinds {
		kf := f.WithKind(kind)
		g.Go(func() error {
			var err error
			perKind[i], err = s.agg.CountDistinctActorsByDay(gctx, kf)
			return err
		})
	}
	if err := waitContext(ctx, g); err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]*models.DailyBucket, len(totals))
	for _, dc := range totals {
		day := StartOfDay(dc.Day)
		byDay[day] = &models.DailyBucket{Day: day, StatementCount: dc.Count}
	}
	for _, counts := range perKind {
		for _, dc := range counts {
			if b, ok := byDay[StartOfDay(dc.Day)]; ok {
				b.DistinctActorCount += dc.Count
			}
		}
	}

	buckets := make([]models.DailyBucket, 0, len(byDay))
	for _, b := range byDay {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Day.Before(buckets[j].Day) })
	return buckets, nil
}

// waitContext waits for the group and fails if ctx ended meanwhile, so a
// cancelled call never returns partial results.
func waitContext(ctx context.Context, g *errgroup.Group) error {
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// begin opens a span for op and returns a function that closes it and
// records the outcome.
func (s *Service) begin(ctx context.Context, op string, scope Scope) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "dashboard."+op, trace.WithAttributes(
		attribute.String("lrs.scope", scope.String()),
	))

	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.ErrorContext(ctx, "dashboard query failed",
				"op", op, "scope", scope.String(), "error", err)
		}
		span.End()
		if s.metrics != nil {
			s.metrics.RecordRequest(ctx, op, status, time.Since(start))
		}
	}
}
