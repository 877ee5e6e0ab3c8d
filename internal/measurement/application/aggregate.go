package application

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	device "vitals-cloud/internal/device/domain"
	measurement "vitals-cloud/internal/measurement/domain"
	"vitals-cloud/internal/timezone"
)

// DeviceTimezoneSource looks up the configured timezone of a user's
// first registered device.
type DeviceTimezoneSource interface {
	FirstDeviceTimezone(ctx context.Context, userID string) (string, error)
}

// AggregationService computes rolling aggregates over the measurement
// store. All operations are side-effect-free reads scoped to a user;
// storage errors propagate unchanged, without retries.
//
// Grouping boundaries are UTC-calendar-day boundaries regardless of the
// caller's timezone. Callers wanting true local-day boundaries use the
// per-date DayWindow query path instead.
type AggregationService struct {
	query   measurement.AggregateQuery
	devices DeviceTimezoneSource
	clock   Clock
	logger  *log.Logger
}

// NewAggregationService constructs an aggregation service.
func NewAggregationService(query measurement.AggregateQuery, devices DeviceTimezoneSource, clock Clock, logger *log.Logger) (*AggregationService, error) {
	if query == nil {
		return nil, errors.New("aggregation service: nil query")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AggregationService{query: query, devices: devices, clock: clock, logger: logger}, nil
}

// WeeklySummary aggregates the trailing seven days from now, starting at
// the UTC midnight of the day seven days back. Returns nil when the user
// has no measurements in range; zero-filling is the caller's concern.
func (s *AggregationService) WeeklySummary(ctx context.Context, userID string) (*measurement.WeeklySummary, error) {
	if userID == "" {
		return nil, measurement.ErrInvalidInput
	}
	from, to := WeeklyRange(s.clock.Now())
	summary, err := s.query.RangeSummary(ctx, userID, from, to)
	if err != nil {
		s.logger.Printf("aggregation: weekly summary error: %v", err)
		return nil, err
	}
	if summary == nil {
		return nil, nil
	}
	summary.RangeStart = from
	summary.RangeEnd = to
	return summary, nil
}

// DailyAggregates returns one entry per UTC calendar day with at least
// one measurement over the trailing days, ascending by date. Per-day
// averages are rounded to one decimal.
func (s *AggregationService) DailyAggregates(ctx context.Context, userID string, days int) ([]measurement.DailyAggregate, error) {
	if userID == "" {
		return nil, measurement.ErrInvalidInput
	}
	if days < 1 || days > 365 {
		return nil, measurement.ErrInvalidInput
	}
	now := s.clock.Now()
	from := dayStartUTC(now.AddDate(0, 0, -days))
	aggregates, err := s.query.DailyAggregates(ctx, userID, from, now)
	if err != nil {
		s.logger.Printf("aggregation: daily aggregates error: %v", err)
		return nil, err
	}
	for i := range aggregates {
		aggregates[i].AverageHeartRate = Round1(aggregates[i].AverageHeartRate)
		aggregates[i].AverageSpO2 = Round1(aggregates[i].AverageSpO2)
	}
	return aggregates, nil
}

// AllTimeStats aggregates the user's full history: count, avg/min/max
// for both vitals, first/last instants, distinct UTC calendar days
// tracked, and the extreme-valued record for each vital. Returns nil
// when the user has no measurements.
func (s *AggregationService) AllTimeStats(ctx context.Context, userID string) (*measurement.AllTimeStats, error) {
	if userID == "" {
		return nil, measurement.ErrInvalidInput
	}
	stats, err := s.query.AllTimeStats(ctx, userID)
	if err != nil {
		s.logger.Printf("aggregation: all-time stats error: %v", err)
		return nil, err
	}
	return stats, nil
}

// UserTimezoneHint picks the default timezone for a user's
// timezone-aware read paths: the first device's configured zone, or the
// fixed default when the user has no devices, the lookup fails, or the
// configured zone does not resolve.
func (s *AggregationService) UserTimezoneHint(ctx context.Context, userID string) string {
	if s.devices == nil || userID == "" {
		return timezone.DefaultZone
	}
	zone, err := s.devices.FirstDeviceTimezone(ctx, userID)
	if err != nil {
		return timezone.DefaultZone
	}
	return device.Config{Timezone: zone}.TimezoneOrDefault()
}

// WeeklyRange is the trailing seven-day window ending at now: the UTC
// midnight of the day seven days back through now. Shared so callers
// reporting an empty window describe the same range the query used.
func WeeklyRange(now time.Time) (time.Time, time.Time) {
	return dayStartUTC(now.AddDate(0, 0, -7)), now
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func dayStartUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
