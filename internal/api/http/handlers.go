package apihttp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"time"

	"vitals-cloud/internal/auth"
	"vitals-cloud/internal/timezone"
)

const timeLayout = time.RFC3339

// TimezoneHinter resolves the default display timezone for a user when
// the request names none.
type TimezoneHinter interface {
	UserTimezoneHint(ctx context.Context, userID string) string
}

// ExportMeasurementsCSVHandler serves measurement CSV exports.
type ExportMeasurementsCSVHandler struct {
	db    *sql.DB
	hints TimezoneHinter
}

// NewExportMeasurementsCSVHandler constructs a ExportMeasurementsCSVHandler.
func NewExportMeasurementsCSVHandler(db *sql.DB, hints TimezoneHinter) *ExportMeasurementsCSVHandler {
	return &ExportMeasurementsCSVHandler{db: db, hints: hints}
}

// ServeHTTP handles GET /api/v1/exports/measurements.csv.
func (h *ExportMeasurementsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	identity, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID, allowed := auth.ResolveTargetUser(r, identity)
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}
	// Same precedence as the JSON read paths: explicit tz parameter,
	// then the user's device hint, then the fixed default.
	zone := r.URL.Query().Get("tz")
	if zone == "" && h.hints != nil {
		zone = h.hints.UserTimezoneHint(r.Context(), userID)
	}
	if zone == "" {
		zone = timezone.DefaultZone
	}

	rows, err := queryReadings(r.Context(), h.db, userID, from, to)
	if err != nil {
		http.Error(w, "query readings error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="measurements.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"id",
		"device_id",
		"heart_rate",
		"spo2",
		"timestamp",
		"local_date",
		"quality",
		"confidence",
		"created_at",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.ID,
			row.DeviceID,
			strconv.Itoa(row.HeartRate),
			strconv.Itoa(row.SpO2),
			timezone.FormatInTimezone(row.Timestamp, zone),
			timezone.DateOnlyInTimezone(row.Timestamp, zone),
			row.Quality,
			strconv.FormatFloat(row.Confidence, 'f', -1, 64),
			row.CreatedAt.UTC().Format(timeLayout),
		})
	}
	writer.Flush()
}

type readingRow struct {
	ID         string
	DeviceID   string
	HeartRate  int
	SpO2       int
	Timestamp  time.Time
	Quality    string
	Confidence float64
	CreatedAt  time.Time
}

func queryReadings(ctx context.Context, db *sql.DB, userID string, from, to time.Time) ([]readingRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	id,
	device_id,
	heart_rate,
	spo2,
	ts,
	quality,
	confidence,
	created_at
FROM measurements
WHERE user_id = $1
	AND ts >= $2
	AND ts <= $3
ORDER BY ts ASC`, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readingRow
	for rows.Next() {
		var row readingRow
		if err := rows.Scan(
			&row.ID,
			&row.DeviceID,
			&row.HeartRate,
			&row.SpO2,
			&row.Timestamp,
			&row.Quality,
			&row.Confidence,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		row.Timestamp = row.Timestamp.UTC()
		row.CreatedAt = row.CreatedAt.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
