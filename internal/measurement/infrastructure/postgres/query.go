package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	measurement "vitals-cloud/internal/measurement/domain"
)

// MeasurementQuery is a Postgres read implementation for measurement
// lists and grouped aggregates. Calendar-day grouping is pinned to UTC
// explicitly so the session TimeZone setting cannot change aggregate
// semantics.
type MeasurementQuery struct {
	db    *sql.DB
	table string
}

// NewMeasurementQuery constructs a query with default table name.
func NewMeasurementQuery(db *sql.DB, opts ...QueryOption) *MeasurementQuery {
	query := &MeasurementQuery{db: db, table: defaultMeasurementTable}
	for _, opt := range opts {
		opt(query)
	}
	return query
}

// QueryOption configures the measurement query.
type QueryOption func(*MeasurementQuery)

// WithQueryTable overrides the default table name for queries.
func WithQueryTable(table string) QueryOption {
	return func(query *MeasurementQuery) {
		if query != nil && table != "" {
			query.table = table
		}
	}
}

// FindRange returns measurements with timestamp in [from, to], most
// recent first.
func (q *MeasurementQuery) FindRange(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]measurement.Measurement, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("measurement query: nil db")
	}
	if userID == "" || from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: invalid range arguments", measurement.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
SELECT id, user_id, device_id, heart_rate, spo2, ts, quality, confidence, created_at
FROM %s
WHERE user_id = $1
	AND ts >= $2
	AND ts <= $3
ORDER BY ts DESC
LIMIT $4 OFFSET $5`, q.table)

	rows, err := q.db.QueryContext(ctx, query, userID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]measurement.Measurement, 0)
	for rows.Next() {
		var m measurement.Measurement
		var quality string
		if err := rows.Scan(&m.ID, &m.UserID, &m.DeviceID, &m.HeartRate, &m.SpO2, &m.Timestamp, &quality, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Quality = measurement.Quality(quality)
		m.Timestamp = m.Timestamp.UTC()
		m.CreatedAt = m.CreatedAt.UTC()
		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountRange counts measurements with timestamp in [from, to].
func (q *MeasurementQuery) CountRange(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	if q == nil || q.db == nil {
		return 0, errors.New("measurement query: nil db")
	}
	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1 AND ts >= $2 AND ts <= $3`, q.table)
	if err := q.db.QueryRowContext(ctx, query, userID, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// RangeSummary aggregates [from, to] across all of the user's devices.
// Returns nil when no measurements fall in the range.
func (q *MeasurementQuery) RangeSummary(ctx context.Context, userID string, from, to time.Time) (*measurement.WeeklySummary, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("measurement query: nil db")
	}

	query := fmt.Sprintf(`
SELECT
	COUNT(*),
	COALESCE(AVG(heart_rate), 0),
	COALESCE(MIN(heart_rate), 0),
	COALESCE(MAX(heart_rate), 0),
	COALESCE(AVG(spo2), 0),
	COALESCE(MIN(spo2), 0),
	COALESCE(MAX(spo2), 0)
FROM %s
WHERE user_id = $1
	AND ts >= $2
	AND ts <= $3`, q.table)

	var summary measurement.WeeklySummary
	err := q.db.QueryRowContext(ctx, query, userID, from, to).Scan(
		&summary.TotalMeasurements,
		&summary.AverageHeartRate,
		&summary.MinHeartRate,
		&summary.MaxHeartRate,
		&summary.AverageSpO2,
		&summary.MinSpO2,
		&summary.MaxSpO2,
	)
	if err != nil {
		return nil, err
	}
	if summary.TotalMeasurements == 0 {
		return nil, nil
	}
	return &summary, nil
}

// DailyAggregates groups [from, to] by UTC calendar day, ascending.
func (q *MeasurementQuery) DailyAggregates(ctx context.Context, userID string, from, to time.Time) ([]measurement.DailyAggregate, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("measurement query: nil db")
	}

	query := fmt.Sprintf(`
SELECT
	to_char((ts AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD'),
	AVG(heart_rate),
	MIN(heart_rate),
	MAX(heart_rate),
	AVG(spo2),
	COUNT(*)
FROM %s
WHERE user_id = $1
	AND ts >= $2
	AND ts <= $3
GROUP BY (ts AT TIME ZONE 'UTC')::date
ORDER BY (ts AT TIME ZONE 'UTC')::date ASC`, q.table)

	rows, err := q.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aggregates := make([]measurement.DailyAggregate, 0)
	for rows.Next() {
		var agg measurement.DailyAggregate
		if err := rows.Scan(&agg.Date, &agg.AverageHeartRate, &agg.MinHeartRate, &agg.MaxHeartRate, &agg.AverageSpO2, &agg.Count); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return aggregates, nil
}

// AllTimeStats aggregates the user's full history. Extremes are selected
// by value, independent of insertion order; days tracked counts distinct
// UTC calendar dates.
func (q *MeasurementQuery) AllTimeStats(ctx context.Context, userID string) (*measurement.AllTimeStats, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("measurement query: nil db")
	}

	query := fmt.Sprintf(`
SELECT
	COUNT(*),
	COALESCE(AVG(heart_rate), 0),
	COALESCE(MIN(heart_rate), 0),
	COALESCE(MAX(heart_rate), 0),
	COALESCE(AVG(spo2), 0),
	COALESCE(MIN(spo2), 0),
	COALESCE(MAX(spo2), 0),
	MIN(ts),
	MAX(ts),
	COUNT(DISTINCT (ts AT TIME ZONE 'UTC')::date)
FROM %s
WHERE user_id = $1`, q.table)

	var stats measurement.AllTimeStats
	var first, last sql.NullTime
	err := q.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalMeasurements,
		&stats.AverageHeartRate,
		&stats.MinHeartRate,
		&stats.MaxHeartRate,
		&stats.AverageSpO2,
		&stats.MinSpO2,
		&stats.MaxSpO2,
		&first,
		&last,
		&stats.DaysTracked,
	)
	if err != nil {
		return nil, err
	}
	if stats.TotalMeasurements == 0 {
		return nil, nil
	}
	if first.Valid {
		stats.FirstMeasurement = first.Time.UTC()
	}
	if last.Valid {
		stats.LastMeasurement = last.Time.UTC()
	}

	extremes := []struct {
		column string
		order  string
		target *measurement.ExtremeReading
	}{
		{"heart_rate", "ASC", &stats.LowestHeartRate},
		{"heart_rate", "DESC", &stats.HighestHeartRate},
		{"spo2", "ASC", &stats.LowestSpO2},
		{"spo2", "DESC", &stats.HighestSpO2},
	}
	for _, e := range extremes {
		extremeQuery := fmt.Sprintf(`
SELECT %s, ts
FROM %s
WHERE user_id = $1
ORDER BY %s %s
LIMIT 1`, e.column, q.table, e.column, e.order)
		var value int
		var at time.Time
		if err := q.db.QueryRowContext(ctx, extremeQuery, userID).Scan(&value, &at); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		e.target.Value = value
		e.target.Timestamp = at.UTC()
	}
	return &stats, nil
}
