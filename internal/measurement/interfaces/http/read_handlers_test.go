package measurementhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vitals-cloud/internal/auth"
	"vitals-cloud/internal/measurement/application"
	measurement "vitals-cloud/internal/measurement/domain"
)

type stubQuery struct {
	records []measurement.Measurement

	gotFrom time.Time
	gotTo   time.Time
}

func (s *stubQuery) FindRange(_ context.Context, _ string, from, to time.Time, _, _ int) ([]measurement.Measurement, error) {
	s.gotFrom, s.gotTo = from, to
	return s.records, nil
}

func (s *stubQuery) CountRange(_ context.Context, _ string, _, _ time.Time) (int64, error) {
	return int64(len(s.records)), nil
}

type stubAggQuery struct {
	summary *measurement.WeeklySummary
	daily   []measurement.DailyAggregate
	stats   *measurement.AllTimeStats
}

func (s *stubAggQuery) RangeSummary(_ context.Context, _ string, _, _ time.Time) (*measurement.WeeklySummary, error) {
	return s.summary, nil
}

func (s *stubAggQuery) DailyAggregates(_ context.Context, _ string, _, _ time.Time) ([]measurement.DailyAggregate, error) {
	return s.daily, nil
}

func (s *stubAggQuery) AllTimeStats(_ context.Context, _ string) (*measurement.AllTimeStats, error) {
	return s.stats, nil
}

func newTestReadHandler(t *testing.T, query *stubQuery, agg *stubAggQuery) *ReadHandler {
	t.Helper()
	service, err := application.NewAggregationService(agg, nil, application.SystemClock{}, nil)
	if err != nil {
		t.Fatalf("aggregation service: %v", err)
	}
	handler, err := NewReadHandler(query, service, nil, nil)
	if err != nil {
		t.Fatalf("read handler: %v", err)
	}
	return handler
}

func userRequest(target string, identity auth.UserIdentity) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(auth.WithUser(req.Context(), identity))
}

func patientRequest(target string) *http.Request {
	return userRequest(target, auth.UserIdentity{UserID: "user-1", Role: auth.RolePatient})
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return got
}

func TestReadHandler_Unauthenticated(t *testing.T) {
	handler := newTestReadHandler(t, &stubQuery{}, &stubAggQuery{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/measurements", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestReadHandler_PatientCrossUserForbidden(t *testing.T) {
	handler := newTestReadHandler(t, &stubQuery{}, &stubAggQuery{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, patientRequest("/api/v1/measurements?user_id=other"))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestReadHandler_ListFormatsTimestampsInZone(t *testing.T) {
	query := &stubQuery{records: []measurement.Measurement{{
		ID:         "m-1",
		UserID:     "user-1",
		DeviceID:   "dev-1",
		HeartRate:  72,
		SpO2:       98,
		Timestamp:  time.Date(2025, 1, 15, 12, 0, 0, 123000000, time.UTC),
		Quality:    measurement.QualityGood,
		Confidence: 1.0,
	}}}
	handler := newTestReadHandler(t, query, &stubAggQuery{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, patientRequest("/api/v1/measurements?tz=America/New_York"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got := decodeBody(t, resp)
	if got["timezone"] != "America/New_York" {
		t.Fatalf("expected timezone America/New_York, got %v", got["timezone"])
	}
	readings := got["readings"].([]any)
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(readings))
	}
	first := readings[0].(map[string]any)
	if first["timestamp"] != "2025-01-15T07:00:00.123-05:00" {
		t.Fatalf("expected eastern timestamp, got %v", first["timestamp"])
	}
}

func TestReadHandler_DayUsesLocalWindow(t *testing.T) {
	query := &stubQuery{}
	handler := newTestReadHandler(t, query, &stubAggQuery{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, patientRequest("/api/v1/measurements/day?date=2025-06-15&tz=America/Phoenix"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	wantStart := time.Date(2025, 6, 15, 7, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 6, 16, 6, 59, 59, 999000000, time.UTC)
	if !query.gotFrom.Equal(wantStart) {
		t.Fatalf("expected window start %v, got %v", wantStart, query.gotFrom)
	}
	if !query.gotTo.Equal(wantEnd) {
		t.Fatalf("expected window end %v, got %v", wantEnd, query.gotTo)
	}

	got := decodeBody(t, resp)
	window := got["window"].(map[string]any)
	if window["startUtc"] != "2025-06-15T07:00:00.000Z" {
		t.Fatalf("unexpected window start %v", window["startUtc"])
	}
	if window["endUtc"] != "2025-06-16T06:59:59.999Z" {
		t.Fatalf("unexpected window end %v", window["endUtc"])
	}
}

func TestReadHandler_DayRequiresDate(t *testing.T) {
	handler := newTestReadHandler(t, &stubQuery{}, &stubAggQuery{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, patientRequest("/api/v1/measurements/day"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestReadHandler_WeeklyRoundsAverages(t *testing.T) {
	agg := &stubAggQuery{summary: &measurement.WeeklySummary{
		AverageHeartRate:  72.3456,
		MinHeartRate:      58,
		MaxHeartRate:      131,
		AverageSpO2:       97.84,
		MinSpO2:           92,
		MaxSpO2:           100,
		TotalMeasurements: 42,
	}}
	handler := newTestReadHandler(t, &stubQuery{}, agg)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, patientRequest("/api/v1/measurements/summary/weekly"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got := decodeBody(t, resp)
	if got["averageHeartRate"] != 72.3 {
		t.Fatalf("expected averageHeartRate 72.3, got %v", got["averageHeartRate"])
	}
	if got["averageSpO2"] != 97.8 {
		t.Fatalf("expected averageSpO2 97.8, got %v", got["averageSpO2"])
	}
	if got["totalMeasurements"] != float64(42) {
		t.Fatalf("expected 42 measurements, got %v", got["totalMeasurements"])
	}
}

func TestReadHandler_WeeklyEmptyZeroFilled(t *testing.T) {
	handler := newTestReadHandler(t, &stubQuery{}, &stubAggQuery{summary: nil})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, patientRequest("/api/v1/measurements/summary/weekly"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got := decodeBody(t, resp)
	if got["totalMeasurements"] != float64(0) {
		t.Fatalf("expected zeroed totalMeasurements, got %v", got["totalMeasurements"])
	}
	if got["averageHeartRate"] != float64(0) {
		t.Fatalf("expected zeroed averageHeartRate, got %v", got["averageHeartRate"])
	}
	dateRange, ok := got["dateRange"].(map[string]any)
	if !ok {
		t.Fatalf("expected dateRange present, got %v", got["dateRange"])
	}
	start, ok := dateRange["start"].(string)
	if !ok || !strings.HasSuffix(start, "T00:00:00Z") {
		t.Fatalf("expected midnight-aligned range start, got %v", dateRange["start"])
	}
}

func TestReadHandler_DailyValidatesDays(t *testing.T) {
	handler := newTestReadHandler(t, &stubQuery{}, &stubAggQuery{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, patientRequest("/api/v1/measurements/summary/daily?days=400"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestReadHandler_StatsEmpty(t *testing.T) {
	handler := newTestReadHandler(t, &stubQuery{}, &stubAggQuery{stats: nil})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, patientRequest("/api/v1/measurements/stats"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got := decodeBody(t, resp)
	if got["totalMeasurements"] != float64(0) || got["daysTracked"] != float64(0) {
		t.Fatalf("expected zeroed stats, got %v", got)
	}
}

func TestReadHandler_StatsFormatsExtremes(t *testing.T) {
	agg := &stubAggQuery{stats: &measurement.AllTimeStats{
		TotalMeasurements: 10,
		AverageHeartRate:  71.22,
		MinHeartRate:      55,
		MaxHeartRate:      140,
		AverageSpO2:       98.4,
		MinSpO2:           90,
		MaxSpO2:           100,
		FirstMeasurement:  time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
		LastMeasurement:   time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		DaysTracked:       120,
		LowestHeartRate:   measurement.ExtremeReading{Value: 55, Timestamp: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)},
		HighestHeartRate:  measurement.ExtremeReading{Value: 140, Timestamp: time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)},
		LowestSpO2:        measurement.ExtremeReading{Value: 90, Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		HighestSpO2:       measurement.ExtremeReading{Value: 100, Timestamp: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)},
	}}
	handler := newTestReadHandler(t, &stubQuery{}, agg)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, patientRequest("/api/v1/measurements/stats?tz=America/New_York"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got := decodeBody(t, resp)
	if got["averageHeartRate"] != 71.2 {
		t.Fatalf("expected averageHeartRate 71.2, got %v", got["averageHeartRate"])
	}
	if got["daysTracked"] != float64(120) {
		t.Fatalf("expected daysTracked 120, got %v", got["daysTracked"])
	}
	lowest := got["lowestHeartRate"].(map[string]any)
	if lowest["value"] != float64(55) {
		t.Fatalf("expected lowest heart rate 55, got %v", lowest["value"])
	}
	if lowest["timestamp"] != "2025-01-15T07:00:00.000-05:00" {
		t.Fatalf("expected eastern extreme timestamp, got %v", lowest["timestamp"])
	}
}
