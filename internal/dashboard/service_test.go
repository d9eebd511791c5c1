package dashboard

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrs-tracker/internal/models"
)

type sliceScanner struct {
	statements []models.Statement
	err        error
}

func (s *sliceScanner) Scan(ctx context.Context, f Filter, fn func(models.Statement) error) error {
	if s.err != nil {
		return s.err
	}
	for _, st := range s.statements {
		if !f.MatchesBounds(st) {
			continue
		}
		if err := fn(st); err != nil {
			return err
		}
	}
	return nil
}

type recordedCall struct {
	op, status string
}

type fakeRecorder struct {
	calls []recordedCall
}

func (r *fakeRecorder) RecordRequest(_ context.Context, op, status string, _ time.Duration) {
	r.calls = append(r.calls, recordedCall{op: op, status: status})
}

func stmt(store string, ts time.Time, actor models.Actor) models.Statement {
	return models.Statement{StoreID: store, Timestamp: ts, Statement: models.StatementBody{Actor: actor}}
}

func at(s string, hour int) time.Time {
	return day(s).Add(time.Duration(hour) * time.Hour)
}

func mbox(v string) models.Actor   { return models.Actor{Mbox: "mailto:" + v} }
func openid(v string) models.Actor { return models.Actor{OpenID: v} }
func account(name, home string) models.Actor {
	return models.Actor{Account: &models.Account{Name: name, HomePage: home}}
}

func newTestService(statements ...models.Statement) *Service {
	return NewService(InProcess(&sliceScanner{statements: statements}), WithClock(func() time.Time { return testNow }))
}

func TestGetGraphData_Scenario(t *testing.T) {
	t.Parallel()

	svc := newTestService(
		stmt("s1", at("2024-01-01", 9), mbox("a@x.com")),
		stmt("s1", at("2024-01-01", 17), mbox("a@x.com")),
		stmt("s1", at("2024-01-03", 8), openid("u1")),
	)

	graph, err := svc.GetGraphData(context.Background(), Global(), ptr(day("2024-01-01")), ptr(day("2024-01-03")))
	require.NoError(t, err)
	require.Len(t, graph.Series, 3)

	points := graph.Series.ByDay()
	assert.Equal(t, models.GraphPoint{Day: "2024-01-01", StatementCount: 2, DistinctActorCount: 1}, points["2024-01-01"])
	assert.Equal(t, models.GraphPoint{Day: "2024-01-02", StatementCount: 0, DistinctActorCount: 0}, points["2024-01-02"])
	assert.Equal(t, models.GraphPoint{Day: "2024-01-03", StatementCount: 1, DistinctActorCount: 1}, points["2024-01-03"])

	stats, err := svc.GetStats(context.Background(), Global())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.StatementCount)
	// 2024-01-01 to 2024-01-10 is 10 active days; 3/10 rounds to 0.
	assert.Equal(t, int64(0), stats.StatementAvgPerDay)
}

func TestGetStats_Empty(t *testing.T) {
	t.Parallel()

	svc := newTestService()
	for _, scope := range []Scope{Global(), ForStore("missing")} {
		stats, err := svc.GetStats(context.Background(), scope)
		require.NoError(t, err)
		assert.Equal(t, models.SummaryStats{}, stats)
	}
}

func TestGetStats_Average(t *testing.T) {
	t.Parallel()

	var statements []models.Statement
	for i := 0; i < 25; i++ {
		statements = append(statements, stmt("s1", at("2024-01-06", i%24), mbox("a@x.com")))
	}
	statements = append(statements, stmt("s2", at("2023-12-01", 0), mbox("b@x.com")))
	svc := newTestService(statements...)

	stats, err := svc.GetStats(context.Background(), ForStore("s1"))
	require.NoError(t, err)
	// 2024-01-06..2024-01-10 is 5 days.
	assert.Equal(t, models.SummaryStats{StatementCount: 25, StatementAvgPerDay: 5}, stats)

	stats, err = svc.GetStats(context.Background(), Global())
	require.NoError(t, err)
	// 2023-12-01..2024-01-10 is 41 days; 26/41 rounds to 1.
	assert.Equal(t, models.SummaryStats{StatementCount: 26, StatementAvgPerDay: 1}, stats)
}

func TestGetGraphData_DefaultRange(t *testing.T) {
	t.Parallel()

	svc := newTestService(stmt("s1", at("2024-01-03", 0), mbox("a@x.com")))

	graph, err := svc.GetGraphData(context.Background(), Global(), nil, nil)
	require.NoError(t, err)
	require.Len(t, graph.Series, 8)
	assert.Equal(t, "2024-01-03", graph.Series[0].Key())
	assert.Equal(t, "2024-01-10", graph.Series[7].Key())
	assert.Equal(t, int64(1), graph.Series[0].StatementCount)
}

func TestGetGraphData_InvertedRange(t *testing.T) {
	t.Parallel()

	svc := NewService(InProcess(&sliceScanner{err: errors.New("must not be queried")}),
		WithClock(func() time.Time { return testNow }))

	graph, err := svc.GetGraphData(context.Background(), Global(), ptr(day("2024-01-05")), ptr(day("2024-01-01")))
	require.NoError(t, err)
	assert.Empty(t, graph.Series)
	assert.True(t, graph.Range.Empty())
}

func TestGetGraphData_BucketCountAndTotals(t *testing.T) {
	t.Parallel()

	statements := []models.Statement{
		stmt("s1", at("2023-12-30", 23), mbox("a@x.com")),
		stmt("s1", at("2024-01-01", 0), mbox("a@x.com")),
		stmt("s1", at("2024-01-02", 12), openid("u1")),
		stmt("s2", at("2024-01-02", 13), openid("u2")),
		stmt("s1", at("2024-01-04", 23), account("n", "h")),
		stmt("s1", at("2024-01-05", 0), mbox("c@x.com")),
	}
	svc := newTestService(statements...)

	start, end := day("2024-01-01"), day("2024-01-04")
	graph, err := svc.GetGraphData(context.Background(), ForStore("s1"), &start, &end)
	require.NoError(t, err)

	assert.Len(t, graph.Series, 4)
	assert.Equal(t, int64(3), graph.Series.Total())

	for i := 1; i < len(graph.Series); i++ {
		assert.True(t, graph.Series[i-1].Day.Before(graph.Series[i].Day))
	}
}

func TestGetGraphData_DistinctActors(t *testing.T) {
	t.Parallel()

	svc := newTestService(
		stmt("s1", at("2024-01-02", 1), mbox("a@x.com")),
		stmt("s1", at("2024-01-02", 2), mbox("a@x.com")),
		stmt("s1", at("2024-01-02", 3), mbox("b@x.com")),
		stmt("s1", at("2024-01-02", 4), account("a@x.com", "https://lms")),
		stmt("s1", at("2024-01-02", 5), account("a@x.com", "https://lms")),
		stmt("s1", at("2024-01-02", 6), account("a@x.com", "https://other")),
		// Unresolvable: counted as a statement, not as an actor.
		stmt("s1", at("2024-01-02", 7), models.Actor{Name: "anonymous"}),
		// Multiple identifiers resolve by mbox only.
		stmt("s1", at("2024-01-02", 8), models.Actor{Mbox: "mailto:b@x.com", OpenID: "u9"}),
	)

	start := day("2024-01-02")
	graph, err := svc.GetGraphData(context.Background(), Global(), &start, &start)
	require.NoError(t, err)
	require.Len(t, graph.Series, 1)

	assert.Equal(t, int64(8), graph.Series[0].StatementCount)
	assert.Equal(t, int64(4), graph.Series[0].DistinctActorCount)
}

func TestGetGraphData_StableUnderReordering(t *testing.T) {
	t.Parallel()

	statements := []models.Statement{
		stmt("s1", at("2024-01-01", 1), mbox("a@x.com")),
		stmt("s1", at("2024-01-01", 2), openid("u1")),
		stmt("s1", at("2024-01-01", 3), mbox("a@x.com")),
		stmt("s1", at("2024-01-02", 1), account("n1", "h")),
		stmt("s1", at("2024-01-02", 2), account("n1", "h")),
		stmt("s1", at("2024-01-02", 3), models.Actor{MboxSha1Sum: "abc"}),
		stmt("s1", at("2024-01-03", 1), openid("u1")),
	}
	start, end := day("2024-01-01"), day("2024-01-03")

	baseline, err := newTestService(statements...).GetGraphData(context.Background(), Global(), &start, &end)
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]models.Statement(nil), statements...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := newTestService(shuffled...).GetGraphData(context.Background(), Global(), &start, &end)
		require.NoError(t, err)
		assert.Equal(t, baseline.Series, got.Series)
	}
}

func TestGetActorCount(t *testing.T) {
	t.Parallel()

	svc := newTestService(
		stmt("s1", at("2024-01-01", 1), mbox("a@x.com")),
		stmt("s1", at("2024-01-02", 1), account("a@x.com", "https://lms")),
		stmt("s1", at("2024-01-02", 2), mbox("a@x.com")),
		stmt("s1", at("2024-01-03", 2), models.Actor{}),
		stmt("s2", at("2024-01-03", 2), openid("u1")),
	)

	// The same person by mbox and by account counts twice.
	n, err := svc.GetActorCount(context.Background(), ForStore("s1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = svc.GetActorCount(context.Background(), Global())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestService_StoreErrorIsWrapped(t *testing.T) {
	t.Parallel()

	storeErr := errors.Join(ErrStoreUnavailable, errors.New("connection refused"))
	rec := &fakeRecorder{}
	svc := NewService(InProcess(&sliceScanner{err: storeErr}), WithMetrics(rec))

	_, err := svc.GetStats(context.Background(), ForStore("s1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrDeadlineExceeded)

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, OpStats, qe.Op)
	assert.Equal(t, "s1", qe.Scope.StoreID())
	assert.Contains(t, err.Error(), "store:s1")

	require.Len(t, rec.calls, 1)
	assert.Equal(t, recordedCall{op: OpStats, status: "error"}, rec.calls[0])
}

func TestService_CancelledContext(t *testing.T) {
	t.Parallel()

	svc := newTestService(stmt("s1", at("2024-01-05", 1), mbox("a@x.com")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetGraphData(ctx, Global(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeadlineExceeded)

	_, err = svc.GetStats(ctx, Global())
	assert.ErrorIs(t, err, ErrDeadlineExceeded)

	_, err = svc.GetActorCount(ctx, Global())
	assert.ErrorIs(t, err, ErrDeadlineExceeded)
}

func TestService_DeadlineExceeded(t *testing.T) {
	t.Parallel()

	svc := newTestService(stmt("s1", at("2024-01-05", 1), mbox("a@x.com")))
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := svc.GetGraphData(ctx, Global(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_RecordsMetrics(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	svc := NewService(InProcess(&sliceScanner{}), WithMetrics(rec), WithClock(func() time.Time { return testNow }))

	_, err := svc.GetStats(context.Background(), Global())
	require.NoError(t, err)
	_, err = svc.GetGraphData(context.Background(), Global(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []recordedCall{{OpStats, "ok"}, {OpGraph, "ok"}}, rec.calls)
}
