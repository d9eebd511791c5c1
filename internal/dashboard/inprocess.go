package dashboard

import (
	"context"
	"sort"
	"time"

	"lrs-tracker/internal/models"
)

// InProcess adapts a Scanner into an Aggregator that groups in memory.
// The results are identical to a native implementation over the same data.
func InProcess(s Scanner) Aggregator {
	return &inProcess{scanner: s}
}

type inProcess struct {
	scanner Scanner
}

func (p *inProcess) each(ctx context.Context, f Filter, fn func(models.Statement)) error {
	return p.scanner.Scan(ctx, f, func(st models.Statement) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Matches(st) {
			fn(st)
		}
		return nil
	})
}

func (p *inProcess) CountStatements(ctx context.Context, f Filter) (int64, error) {
	var n int64
	err := p.each(ctx, f, func(models.Statement) { n++ })
	return n, err
}

func (p *inProcess) EarliestTimestamp(ctx context.Context, f Filter) (time.Time, bool, error) {
	var earliest time.Time
	found := false
	err := p.each(ctx, f, func(st models.Statement) {
		if !found || st.Timestamp.Before(earliest) {
			earliest = st.Timestamp
			found = true
		}
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return earliest, found, nil
}

func (p *inProcess) CountByDay(ctx context.Context, f Filter) ([]DayCount, error) {
	counts := make(map[time.Time]int64)
	err := p.each(ctx, f, func(st models.Statement) {
		counts[StartOfDay(st.Timestamp)]++
	})
	if err != nil {
		return nil, err
	}
	return sortedDayCounts(counts), nil
}

func (p *inProcess) CountDistinctActors(ctx context.Context, f Filter) (int64, error) {
	seen := make(map[ActorIdentity]struct{})
	err := p.each(ctx, f, func(st models.Statement) {
		if id, err := ResolveActor(st.Statement.Actor); err == nil {
			seen[id] = struct{}{}
		}
	})
	return int64(len(seen)), err
}

func (p *inProcess) CountDistinctActorsByDay(ctx context.Context, f Filter) ([]DayCount, error) {
	type dayActor struct {
		day time.Time
		id  ActorIdentity
	}
	seen := make(map[dayActor]struct{})
	err := p.each(ctx, f, func(st models.Statement) {
		if id, err := ResolveActor(st.Statement.Actor); err == nil {
			seen[dayActor{day: StartOfDay(st.Timestamp), id: id}] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[time.Time]int64)
	for k := range seen {
		counts[k.day]++
	}
	return sortedDayCounts(counts), nil
}

func sortedDayCounts(counts map[time.Time]int64) []DayCount {
	out := make([]DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, DayCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}
