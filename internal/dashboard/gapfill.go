package dashboard

import (
	"lrs-tracker/internal/models"
)

// FillGaps returns one bucket per day of the range, in ascending order,
// taking counts from buckets and zeros for days without data. Buckets
// outside the range are dropped. An empty range yields an empty series.
func FillGaps(buckets []models.DailyBucket, rng DateRange) models.Series {
	series := make(models.Series, 0, rng.Days())
	if rng.Empty() {
		return series
	}

	byDay := make(map[string]models.DailyBucket, len(buckets))
	for _, b := range buckets {
		byDay[b.Key()] = b
	}

	for day := rng.Start; !day.After(rng.End); day = day.AddDate(0, 0, 1) {
		b := byDay[day.Format(models.DayFormat)]
		b.Day = day
		series = append(series, b)
	}
	return series
}
