package dashboard

import "time"

// defaultWindowDays is how far back the range reaches when no start is given.
const defaultWindowDays = 7

// DateRange is an inclusive span of UTC calendar days. Both bounds are
// midnight UTC. A range whose start is after its end is empty.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NormalizeRange resolves optional caller bounds into concrete UTC days.
// Without a start the range is the week ending at end (or today). Without
// an end the range ends today.
func NormalizeRange(start, end *time.Time, now time.Time) DateRange {
	today := StartOfDay(now)

	endDay := today
	if end != nil {
		endDay = StartOfDay(*end)
	}

	var startDay time.Time
	if start == nil {
		startDay = endDay.AddDate(0, 0, -defaultWindowDays)
	} else {
		startDay = StartOfDay(*start)
	}

	return DateRange{Start: startDay, End: endDay}
}

// StartOfDay truncates t to midnight of its UTC calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Empty reports whether the range covers no day.
func (r DateRange) Empty() bool {
	return r.Start.After(r.End)
}

// Days is the number of calendar days covered, zero for an empty range.
func (r DateRange) Days() int {
	if r.Empty() {
		return 0
	}
	return daysBetween(r.Start, r.End) + 1
}

// Apply restricts the filter to timestamps inside the range.
func (r DateRange) Apply(f Filter) Filter {
	f.Since = r.Start
	f.Before = r.End.AddDate(0, 0, 1)
	return f
}

func (r DateRange) String() string {
	return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
}

// daysBetween counts whole days from a to b; both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
