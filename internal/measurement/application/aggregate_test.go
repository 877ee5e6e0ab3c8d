package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	measurement "vitals-cloud/internal/measurement/domain"
	"vitals-cloud/internal/timezone"
)

type fakeAggregateQuery struct {
	summary    *measurement.WeeklySummary
	summaryErr error
	daily      []measurement.DailyAggregate
	dailyErr   error
	stats      *measurement.AllTimeStats

	gotFrom time.Time
	gotTo   time.Time
}

func (f *fakeAggregateQuery) RangeSummary(_ context.Context, _ string, from, to time.Time) (*measurement.WeeklySummary, error) {
	f.gotFrom, f.gotTo = from, to
	return f.summary, f.summaryErr
}

func (f *fakeAggregateQuery) DailyAggregates(_ context.Context, _ string, from, to time.Time) ([]measurement.DailyAggregate, error) {
	f.gotFrom, f.gotTo = from, to
	return f.daily, f.dailyErr
}

func (f *fakeAggregateQuery) AllTimeStats(_ context.Context, _ string) (*measurement.AllTimeStats, error) {
	return f.stats, nil
}

type fakeTimezoneSource struct {
	zone string
	err  error
}

func (f fakeTimezoneSource) FirstDeviceTimezone(_ context.Context, _ string) (string, error) {
	return f.zone, f.err
}

func newAggregationService(t *testing.T, query *fakeAggregateQuery, devices DeviceTimezoneSource) *AggregationService {
	t.Helper()
	svc, err := NewAggregationService(query, devices, fixedClock{at: testNow}, nil)
	require.NoError(t, err)
	return svc
}

func TestWeeklySummaryWindow(t *testing.T) {
	query := &fakeAggregateQuery{summary: &measurement.WeeklySummary{TotalMeasurements: 12}}
	svc := newAggregationService(t, query, nil)

	got, err := svc.WeeklySummary(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	wantFrom := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, wantFrom, query.gotFrom)
	assert.Equal(t, testNow, query.gotTo)
	assert.Equal(t, wantFrom, got.RangeStart)
	assert.Equal(t, testNow, got.RangeEnd)
}

func TestWeeklySummaryEmptyIsNil(t *testing.T) {
	query := &fakeAggregateQuery{summary: nil}
	svc := newAggregationService(t, query, nil)

	got, err := svc.WeeklySummary(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWeeklySummaryPropagatesStorageError(t *testing.T) {
	boom := errors.New("connection reset")
	query := &fakeAggregateQuery{summaryErr: boom}
	svc := newAggregationService(t, query, nil)

	_, err := svc.WeeklySummary(context.Background(), "user-1")
	require.ErrorIs(t, err, boom)
}

func TestDailyAggregatesRoundsAverages(t *testing.T) {
	query := &fakeAggregateQuery{daily: []measurement.DailyAggregate{
		{Date: "2025-06-14", AverageHeartRate: 72.3456, AverageSpO2: 97.8499, Count: 4},
		{Date: "2025-06-15", AverageHeartRate: 68.06, AverageSpO2: 98.96, Count: 2},
	}}
	svc := newAggregationService(t, query, nil)

	got, err := svc.DailyAggregates(context.Background(), "user-1", 30)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 72.3, got[0].AverageHeartRate)
	assert.Equal(t, 97.8, got[0].AverageSpO2)
	assert.Equal(t, 68.1, got[1].AverageHeartRate)
	assert.Equal(t, 99.0, got[1].AverageSpO2)
}

func TestDailyAggregatesValidatesDays(t *testing.T) {
	svc := newAggregationService(t, &fakeAggregateQuery{}, nil)

	for _, days := range []int{0, -1, 366} {
		_, err := svc.DailyAggregates(context.Background(), "user-1", days)
		require.ErrorIs(t, err, measurement.ErrInvalidInput, "days=%d", days)
	}

	_, err := svc.DailyAggregates(context.Background(), "user-1", 365)
	require.NoError(t, err)
}

func TestUserTimezoneHint(t *testing.T) {
	cases := []struct {
		name    string
		devices DeviceTimezoneSource
		want    string
	}{
		{"configured device zone", fakeTimezoneSource{zone: "Asia/Kolkata"}, "Asia/Kolkata"},
		{"no devices", fakeTimezoneSource{zone: ""}, timezone.DefaultZone},
		{"unresolvable configured zone", fakeTimezoneSource{zone: "Not/A_Zone"}, timezone.DefaultZone},
		{"lookup failure", fakeTimezoneSource{err: errors.New("timeout")}, timezone.DefaultZone},
		{"no source wired", nil, timezone.DefaultZone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newAggregationService(t, &fakeAggregateQuery{}, tc.devices)
			assert.Equal(t, tc.want, svc.UserTimezoneHint(context.Background(), "user-1"))
		})
	}
}

func TestWeeklyRangeMidnightAligned(t *testing.T) {
	now := time.Date(2025, 6, 15, 18, 42, 7, 0, time.UTC)
	from, to := WeeklyRange(now)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, now, to)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 72.3, Round1(72.34))
	assert.Equal(t, 72.4, Round1(72.35))
	assert.Equal(t, -0.1, Round1(-0.06))
	assert.Equal(t, 0.0, Round1(0))
}
