package measurement

import (
	"context"
	"time"
)

// WeeklySummary is the rolling seven-day aggregate across all of a
// user's devices. Not persisted.
type WeeklySummary struct {
	AverageHeartRate  float64
	MinHeartRate      int
	MaxHeartRate      int
	AverageSpO2       float64
	MinSpO2           int
	MaxSpO2           int
	TotalMeasurements int64
	RangeStart        time.Time
	RangeEnd          time.Time
}

// DailyAggregate is one UTC calendar day's aggregate.
type DailyAggregate struct {
	Date             string
	AverageHeartRate float64
	MinHeartRate     int
	MaxHeartRate     int
	AverageSpO2      float64
	Count            int64
}

// ExtremeReading is the single lowest or highest recorded value for a
// vital, carrying the timestamp of the record that produced it.
type ExtremeReading struct {
	Value     int
	Timestamp time.Time
}

// AllTimeStats is the lifetime aggregate for a user.
type AllTimeStats struct {
	TotalMeasurements int64
	AverageHeartRate  float64
	MinHeartRate      int
	MaxHeartRate      int
	AverageSpO2       float64
	MinSpO2           int
	MaxSpO2           int
	FirstMeasurement  time.Time
	LastMeasurement   time.Time
	DaysTracked       int64

	LowestHeartRate  ExtremeReading
	HighestHeartRate ExtremeReading
	LowestSpO2       ExtremeReading
	HighestSpO2      ExtremeReading
}

// AggregateQuery computes grouped statistics storage-side. Grouping is
// always by UTC calendar day; timezone adjustment happens only when
// rendering timestamps for display.
type AggregateQuery interface {
	// RangeSummary aggregates [from, to]. Returns nil when no
	// measurements fall in the range.
	RangeSummary(ctx context.Context, userID string, from, to time.Time) (*WeeklySummary, error)
	// DailyAggregates groups [from, to] by UTC calendar day, ascending,
	// one entry per day with at least one measurement.
	DailyAggregates(ctx context.Context, userID string, from, to time.Time) ([]DailyAggregate, error)
	// AllTimeStats aggregates the user's full history. Returns nil when
	// the user has no measurements.
	AllTimeStats(ctx context.Context, userID string) (*AllTimeStats, error)
}
