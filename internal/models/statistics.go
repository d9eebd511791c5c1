package models

import "time"

// DayFormat is the layout used for day keys in every dashboard response.
const DayFormat = "2006-01-02"

// SummaryStats - headline numbers for a dashboard
type SummaryStats struct {
	StatementCount     int64 `json:"statementCount"`
	StatementAvgPerDay int64 `json:"statementAvgPerDay"`
}

// DailyBucket - statements and distinct actors on one UTC day
type DailyBucket struct {
	Day                time.Time `json:"-"`
	StatementCount     int64     `json:"statementCount"`
	DistinctActorCount int64     `json:"distinctActorCount"`
}

// Key returns the YYYY-MM-DD form of the bucket's day.
func (b DailyBucket) Key() string {
	return b.Day.UTC().Format(DayFormat)
}

// GraphPoint - JSON shape of a single bucket in graph responses
type GraphPoint struct {
	Day                string `json:"day"`
	StatementCount     int64  `json:"statementCount"`
	DistinctActorCount int64  `json:"distinctActorCount"`
}

// Series is an ordered, gap-free sequence of daily buckets.
type Series []DailyBucket

// Points converts the series to its ordered JSON form.
func (s Series) Points() []GraphPoint {
	points := make([]GraphPoint, 0, len(s))
	for _, b := range s {
		points = append(points, GraphPoint{
			Day:                b.Key(),
			StatementCount:     b.StatementCount,
			DistinctActorCount: b.DistinctActorCount,
		})
	}
	return points
}

// ByDay returns the series keyed by YYYY-MM-DD.
func (s Series) ByDay() map[string]GraphPoint {
	byDay := make(map[string]GraphPoint, len(s))
	for _, p := range s.Points() {
		byDay[p.Day] = p
	}
	return byDay
}

// Total sums the statement counts of every bucket.
func (s Series) Total() int64 {
	var total int64
	for _, b := range s {
		total += b.StatementCount
	}
	return total
}

// StatsResponse - response body for the stats endpoints
type StatsResponse struct {
	SummaryStats
	LrsID string `json:"lrsId,omitempty"`
}

// GraphResponse - response body for the graph endpoints in list form
type GraphResponse struct {
	LrsID  string       `json:"lrsId,omitempty"`
	Start  string       `json:"start"`
	End    string       `json:"end"`
	Points []GraphPoint `json:"points"`
}

// GraphMapResponse - response body for the graph endpoints in map form
type GraphMapResponse struct {
	LrsID  string                `json:"lrsId,omitempty"`
	Start  string                `json:"start"`
	End    string                `json:"end"`
	Points map[string]GraphPoint `json:"points"`
}

// ActorCountResponse - distinct actor total for a scope
type ActorCountResponse struct {
	LrsID      string `json:"lrsId,omitempty"`
	ActorCount int64  `json:"actorCount"`
}
