package measurementhttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"vitals-cloud/internal/audit"
	"vitals-cloud/internal/auth"
	"vitals-cloud/internal/measurement/application"
	measurement "vitals-cloud/internal/measurement/domain"
	"vitals-cloud/internal/observability/metrics"
	"vitals-cloud/internal/timezone"
)

const defaultDailyDays = 30

// ReadHandler serves the measurement read paths: listing, single
// local-day queries, rolling summaries and all-time statistics.
//
// Two day semantics coexist on purpose: the summary/daily endpoints
// group by UTC calendar day, while the /day endpoint windows a single
// local calendar day via DayWindow. Only displayed timestamps are
// timezone-adjusted on the aggregate endpoints, never the grouping.
type ReadHandler struct {
	query   measurement.Query
	service *application.AggregationService
	auditor audit.Logger
	logger  *log.Logger
}

// NewReadHandler constructs a read handler.
func NewReadHandler(query measurement.Query, service *application.AggregationService, auditor audit.Logger, logger *log.Logger) (*ReadHandler, error) {
	if query == nil {
		return nil, errors.New("read handler: nil query")
	}
	if service == nil {
		return nil, errors.New("read handler: nil aggregation service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReadHandler{query: query, service: service, auditor: auditor, logger: logger}, nil
}

// ServeHTTP routes the measurement read endpoints.
func (h *ReadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
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
	h.logAccess(r, identity, userID)

	switch r.URL.Path {
	case "/api/v1/measurements":
		h.list(w, r, userID)
	case "/api/v1/measurements/day":
		h.day(w, r, userID)
	case "/api/v1/measurements/summary/weekly":
		h.weekly(w, r, userID)
	case "/api/v1/measurements/summary/daily":
		h.daily(w, r, userID)
	case "/api/v1/measurements/stats":
		h.stats(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

func (h *ReadHandler) zone(r *http.Request, userID string) string {
	if zone := r.URL.Query().Get("tz"); zone != "" {
		return zone
	}
	return h.service.UserTimezoneHint(r.Context(), userID)
}

func (h *ReadHandler) list(w http.ResponseWriter, r *http.Request, userID string) {
	limit := parseIntQuery(r, "limit", 100)
	offset := parseIntQuery(r, "offset", 0)
	to := time.Now().UTC()
	from := to.AddDate(-10, 0, 0)
	if value := r.URL.Query().Get("from"); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			http.Error(w, "from must be RFC3339", http.StatusBadRequest)
			return
		}
		from = parsed.UTC()
	}
	if value := r.URL.Query().Get("to"); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			http.Error(w, "to must be RFC3339", http.StatusBadRequest)
			return
		}
		to = parsed.UTC()
	}

	records, err := h.query.FindRange(r.Context(), userID, from, to, limit, offset)
	if err != nil {
		h.logger.Printf("measurement list: %v", err)
		writeDomainError(w, err)
		return
	}
	total, err := h.query.CountRange(r.Context(), userID, from, to)
	if err != nil {
		h.logger.Printf("measurement count: %v", err)
		writeDomainError(w, err)
		return
	}

	zone := h.zone(r, userID)
	writeJSON(w, map[string]any{
		"total":    total,
		"timezone": zone,
		"readings": toReadingResponses(records, zone),
	})
}

func (h *ReadHandler) day(w http.ResponseWriter, r *http.Request, userID string) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	zone := h.zone(r, userID)
	start, end := timezone.DayWindow(date, zone)

	records, err := h.query.FindRange(r.Context(), userID, start, end, parseIntQuery(r, "limit", 1000), 0)
	if err != nil {
		h.logger.Printf("measurement day query: %v", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"date":     date,
		"timezone": zone,
		"window": map[string]string{
			"startUtc": start.Format("2006-01-02T15:04:05.000Z07:00"),
			"endUtc":   end.Format("2006-01-02T15:04:05.000Z07:00"),
		},
		"readings": toReadingResponses(records, zone),
	})
}

type weeklySummaryResponse struct {
	AverageHeartRate  float64        `json:"averageHeartRate"`
	MinHeartRate      int            `json:"minHeartRate"`
	MaxHeartRate      int            `json:"maxHeartRate"`
	AverageSpO2       float64        `json:"averageSpO2"`
	MinSpO2           int            `json:"minSpO2"`
	MaxSpO2           int            `json:"maxSpO2"`
	TotalMeasurements int64          `json:"totalMeasurements"`
	DateRange         map[string]any `json:"dateRange"`
}

func (h *ReadHandler) weekly(w http.ResponseWriter, r *http.Request, userID string) {
	start := time.Now()
	summary, err := h.service.WeeklySummary(r.Context(), userID)
	metrics.ObserveAggregateQuery("weekly_summary", err == nil, time.Since(start))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// A user with no measurements in range gets zeroed defaults, not an
	// error; the engine itself reports nil. The reported range matches
	// the window the query actually covered.
	if summary == nil {
		from, to := application.WeeklyRange(time.Now().UTC())
		writeJSON(w, weeklySummaryResponse{
			DateRange: map[string]any{
				"start": from.Format(time.RFC3339),
				"end":   to.Format(time.RFC3339),
			},
		})
		return
	}

	writeJSON(w, weeklySummaryResponse{
		AverageHeartRate:  application.Round1(summary.AverageHeartRate),
		MinHeartRate:      summary.MinHeartRate,
		MaxHeartRate:      summary.MaxHeartRate,
		AverageSpO2:       application.Round1(summary.AverageSpO2),
		MinSpO2:           summary.MinSpO2,
		MaxSpO2:           summary.MaxSpO2,
		TotalMeasurements: summary.TotalMeasurements,
		DateRange: map[string]any{
			"start": summary.RangeStart.Format(time.RFC3339),
			"end":   summary.RangeEnd.Format(time.RFC3339),
		},
	})
}

func (h *ReadHandler) daily(w http.ResponseWriter, r *http.Request, userID string) {
	days := parseIntQuery(r, "days", defaultDailyDays)
	start := time.Now()
	aggregates, err := h.service.DailyAggregates(r.Context(), userID, days)
	metrics.ObserveAggregateQuery("daily_aggregates", err == nil, time.Since(start))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type dailyResponse struct {
		Date             string  `json:"date"`
		AverageHeartRate float64 `json:"averageHeartRate"`
		MinHeartRate     int     `json:"minHeartRate"`
		MaxHeartRate     int     `json:"maxHeartRate"`
		AverageSpO2      float64 `json:"averageSpO2"`
		Count            int64   `json:"count"`
	}
	out := make([]dailyResponse, 0, len(aggregates))
	for _, agg := range aggregates {
		out = append(out, dailyResponse(agg))
	}
	writeJSON(w, map[string]any{"days": days, "aggregates": out})
}

func (h *ReadHandler) stats(w http.ResponseWriter, r *http.Request, userID string) {
	start := time.Now()
	stats, err := h.service.AllTimeStats(r.Context(), userID)
	metrics.ObserveAggregateQuery("all_time_stats", err == nil, time.Since(start))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if stats == nil {
		writeJSON(w, map[string]any{"totalMeasurements": 0, "daysTracked": 0})
		return
	}

	zone := h.zone(r, userID)
	extreme := func(e measurement.ExtremeReading) map[string]any {
		return map[string]any{
			"value":     e.Value,
			"timestamp": timezone.FormatInTimezone(e.Timestamp, zone),
		}
	}
	writeJSON(w, map[string]any{
		"totalMeasurements": stats.TotalMeasurements,
		"averageHeartRate":  application.Round1(stats.AverageHeartRate),
		"minHeartRate":      stats.MinHeartRate,
		"maxHeartRate":      stats.MaxHeartRate,
		"averageSpO2":       application.Round1(stats.AverageSpO2),
		"minSpO2":           stats.MinSpO2,
		"maxSpO2":           stats.MaxSpO2,
		"firstMeasurement":  timezone.FormatInTimezone(stats.FirstMeasurement, zone),
		"lastMeasurement":   timezone.FormatInTimezone(stats.LastMeasurement, zone),
		"daysTracked":       stats.DaysTracked,
		"timezone":          zone,
		"lowestHeartRate":   extreme(stats.LowestHeartRate),
		"highestHeartRate":  extreme(stats.HighestHeartRate),
		"lowestSpO2":        extreme(stats.LowestSpO2),
		"highestSpO2":       extreme(stats.HighestSpO2),
	})
}

func (h *ReadHandler) logAccess(r *http.Request, identity auth.UserIdentity, patientID string) {
	if h.auditor == nil {
		return
	}
	entry := audit.Entry{
		Actor:     identity.UserID,
		ActorRole: string(identity.Role),
		Action:    "measurements.read",
		PatientID: patientID,
		Resource:  r.URL.Path,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if err := h.auditor.Log(r.Context(), entry); err != nil {
		h.logger.Printf("measurement read: audit error: %v", err)
	}
}

func toReadingResponses(records []measurement.Measurement, zone string) []readingResponse {
	out := make([]readingResponse, 0, len(records))
	for _, m := range records {
		out = append(out, readingResponse{
			ID:         m.ID,
			DeviceID:   m.DeviceID,
			HeartRate:  m.HeartRate,
			SpO2:       m.SpO2,
			Timestamp:  timezone.FormatInTimezone(m.Timestamp, zone),
			Quality:    string(m.Quality),
			Confidence: m.Confidence,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
