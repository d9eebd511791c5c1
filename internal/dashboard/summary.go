package dashboard

import (
	"math"
	"time"
)

// ActiveDays is the inclusive number of UTC days between the first
// statement and now. Statements dated after now are counted the same way,
// by absolute distance.
func ActiveDays(first, now time.Time) int64 {
	days := daysBetween(StartOfDay(first), StartOfDay(now))
	if days < 0 {
		days = -days
	}
	return int64(days) + 1
}

// AverageCount is count/days rounded half away from zero, or 0 when either
// side is zero.
func AverageCount(count, days int64) int64 {
	if count <= 0 || days <= 0 {
		return 0
	}
	return int64(math.Round(float64(count) / float64(days)))
}
