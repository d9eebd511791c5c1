package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrs-tracker/internal/dashboard"
	"lrs-tracker/internal/database"
	"lrs-tracker/internal/models"
)

func newTestSQLite(t *testing.T) *database.SQLite {
	t.Helper()

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "lrs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ts(day string, hour int) time.Time {
	t, err := time.Parse(models.DayFormat, day)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func statement(store string, at time.Time, actor models.Actor) models.Statement {
	return models.Statement{StoreID: store, Timestamp: at, Statement: models.StatementBody{Actor: actor}}
}

// fixture covers every identity variant, an unresolvable actor, an actor
// with two identifiers and two stores.
func fixture() []models.Statement {
	return []models.Statement{
		statement("s1", ts("2024-01-01", 9), models.Actor{Mbox: "mailto:a@x.com"}),
		statement("s1", ts("2024-01-01", 17), models.Actor{Mbox: "mailto:a@x.com"}),
		statement("s1", ts("2024-01-01", 18), models.Actor{Mbox: "mailto:a@x.com", OpenID: "u1"}),
		statement("s1", ts("2024-01-03", 8), models.Actor{OpenID: "u1"}),
		statement("s1", ts("2024-01-03", 9), models.Actor{MboxSha1Sum: "abc"}),
		statement("s1", ts("2024-01-03", 10), models.Actor{Account: &models.Account{Name: "n1", HomePage: "https://lms"}}),
		statement("s1", ts("2024-01-03", 11), models.Actor{Account: &models.Account{Name: "n1", HomePage: "https://lms"}}),
		statement("s1", ts("2024-01-03", 12), models.Actor{Account: &models.Account{Name: "n1", HomePage: "https://other"}}),
		statement("s1", ts("2024-01-04", 23), models.Actor{Name: "nobody"}),
		statement("s2", ts("2024-01-02", 0), models.Actor{Mbox: "mailto:b@x.com"}),
		statement("s2", ts("2023-12-20", 0), models.Actor{Mbox: "mailto:a@x.com"}),
	}
}

type sliceScanner []models.Statement

func (s sliceScanner) Scan(_ context.Context, f dashboard.Filter, fn func(models.Statement) error) error {
	for _, st := range s {
		if f.MatchesBounds(st) {
			if err := fn(st); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestSQLStatementRepository_Scenario(t *testing.T) {
	t.Parallel()

	repo := NewSQLStatementRepository(newTestSQLite(t).DB)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx,
		statement("s1", ts("2024-01-01", 9), models.Actor{Mbox: "mailto:a@x.com"}),
		statement("s1", ts("2024-01-01", 10), models.Actor{Mbox: "mailto:a@x.com"}),
		statement("s1", ts("2024-01-03", 8), models.Actor{OpenID: "u1"}),
	))

	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	svc := dashboard.NewService(repo, dashboard.WithClock(func() time.Time { return now }))

	start, end := ts("2024-01-01", 0), ts("2024-01-03", 0)
	graph, err := svc.GetGraphData(ctx, dashboard.Global(), &start, &end)
	require.NoError(t, err)

	assert.Equal(t, []models.GraphPoint{
		{Day: "2024-01-01", StatementCount: 2, DistinctActorCount: 1},
		{Day: "2024-01-02", StatementCount: 0, DistinctActorCount: 0},
		{Day: "2024-01-03", StatementCount: 1, DistinctActorCount: 1},
	}, graph.Series.Points())

	stats, err := svc.GetStats(ctx, dashboard.Global())
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStats{StatementCount: 3, StatementAvgPerDay: 0}, stats)
}

func TestSQLStatementRepository_MatchesInProcess(t *testing.T) {
	t.Parallel()

	repo := NewSQLStatementRepository(newTestSQLite(t).DB)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, fixture()...))

	rng := dashboard.DateRange{Start: ts("2024-01-01", 0), End: ts("2024-01-04", 0)}
	filters := []dashboard.Filter{
		dashboard.Global().Filter(),
		dashboard.ForStore("s1").Filter(),
		dashboard.ForStore("s2").Filter(),
		rng.Apply(dashboard.Global().Filter()),
		rng.Apply(dashboard.ForStore("s1").Filter()),
	}

	fallbacks := map[string]dashboard.Aggregator{
		"slice":    dashboard.InProcess(sliceScanner(fixture())),
		"sql scan": dashboard.InProcess(repo),
	}
	for name, fallback := range fallbacks {
		t.Run(name, func(t *testing.T) {
			for _, f := range filters {
				assertSameAggregates(t, ctx, fallback, repo, f)
			}
		})
	}
}

func assertSameAggregates(t *testing.T, ctx context.Context, want, got dashboard.Aggregator, f dashboard.Filter) {
	t.Helper()

	wantCount, err := want.CountStatements(ctx, f)
	require.NoError(t, err)
	gotCount, err := got.CountStatements(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, wantCount, gotCount)

	wantFirst, wantOK, err := want.EarliestTimestamp(ctx, f)
	require.NoError(t, err)
	gotFirst, gotOK, err := got.EarliestTimestamp(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, wantOK, gotOK)
	assert.True(t, wantFirst.Equal(gotFirst))

	wantDays, err := want.CountByDay(ctx, f)
	require.NoError(t, err)
	gotDays, err := got.CountByDay(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, wantDays, gotDays)

	for _, kind := range dashboard.IdentityKinds {
		kf := f.WithKind(kind)

		wantActors, err := want.CountDistinctActors(ctx, kf)
		require.NoError(t, err)
		gotActors, err := got.CountDistinctActors(ctx, kf)
		require.NoError(t, err)
		assert.Equal(t, wantActors, gotActors, "distinct %s", kind)

		wantByDay, err := want.CountDistinctActorsByDay(ctx, kf)
		require.NoError(t, err)
		gotByDay, err := got.CountDistinctActorsByDay(ctx, kf)
		require.NoError(t, err)
		assert.Equal(t, wantByDay, gotByDay, "distinct by day %s", kind)
	}
}

func TestSQLStatementRepository_Scan(t *testing.T) {
	t.Parallel()

	repo := NewSQLStatementRepository(newTestSQLite(t).DB)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, fixture()...))

	var got []models.Statement
	f := dashboard.DateRange{Start: ts("2024-01-03", 0), End: ts("2024-01-03", 0)}.Apply(dashboard.ForStore("s1").Filter())
	require.NoError(t, repo.Scan(ctx, f.WithKind(dashboard.KindAccount), func(st models.Statement) error {
		got = append(got, st)
		return nil
	}))

	// The identity variant is not applied by Scan.
	require.Len(t, got, 5)
	assert.Equal(t, "u1", got[0].Statement.Actor.OpenID)
	assert.Equal(t, ts("2024-01-03", 8), got[0].Timestamp)
	assert.Equal(t, "https://lms", got[2].Statement.Actor.Account.HomePage)
}

func TestSQLStatementRepository_ActorCount(t *testing.T) {
	t.Parallel()

	repo := NewSQLStatementRepository(newTestSQLite(t).DB)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, fixture()...))

	svc := dashboard.NewService(repo)

	// s1: mbox a, openid u1, sha1 abc, account (n1,lms), account (n1,other).
	n, err := svc.GetActorCount(ctx, dashboard.ForStore("s1"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// s2 adds mbox b; mbox a is shared with s1.
	n, err = svc.GetActorCount(ctx, dashboard.Global())
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestSQLStatementRepository_DistinctPerDay(t *testing.T) {
	t.Parallel()

	repo := NewSQLStatementRepository(newTestSQLite(t).DB)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, fixture()...))

	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	svc := dashboard.NewService(repo, dashboard.WithClock(func() time.Time { return now }))

	start, end := ts("2024-01-01", 0), ts("2024-01-04", 0)
	graph, err := svc.GetGraphData(ctx, dashboard.ForStore("s1"), &start, &end)
	require.NoError(t, err)

	assert.Equal(t, []models.GraphPoint{
		{Day: "2024-01-01", StatementCount: 3, DistinctActorCount: 1},
		{Day: "2024-01-02", StatementCount: 0, DistinctActorCount: 0},
		{Day: "2024-01-03", StatementCount: 5, DistinctActorCount: 4},
		{Day: "2024-01-04", StatementCount: 1, DistinctActorCount: 0},
	}, graph.Series.Points())
}

func TestSQLStatementRepository_Empty(t *testing.T) {
	t.Parallel()

	repo := NewSQLStatementRepository(newTestSQLite(t).DB)
	ctx := context.Background()

	_, ok, err := repo.EarliestTimestamp(ctx, dashboard.Global().Filter())
	require.NoError(t, err)
	assert.False(t, ok)

	days, err := repo.CountByDay(ctx, dashboard.Global().Filter())
	require.NoError(t, err)
	assert.Empty(t, days)

	stats, err := dashboard.NewService(repo).GetStats(ctx, dashboard.ForStore("s1"))
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStats{}, stats)
}

func TestSQLStatementRepository_CancelledContext(t *testing.T) {
	t.Parallel()

	repo := NewSQLStatementRepository(newTestSQLite(t).DB)
	require.NoError(t, repo.Insert(context.Background(), fixture()...))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := dashboard.NewService(repo).GetGraphData(ctx, dashboard.Global(), nil, nil)
	assert.ErrorIs(t, err, dashboard.ErrDeadlineExceeded)
}
