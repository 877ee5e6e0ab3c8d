package measurementhttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"vitals-cloud/internal/auth"
	"vitals-cloud/internal/measurement/application"
	measurement "vitals-cloud/internal/measurement/domain"
	"vitals-cloud/internal/observability/metrics"
)

// IngestHandler handles vital-sign submissions from authenticated devices.
type IngestHandler struct {
	service *application.IngestService
	logger  *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(service *application.IngestService, logger *log.Logger) (*IngestHandler, error) {
	if service == nil {
		return nil, errors.New("ingest handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{service: service, logger: logger}, nil
}

type ingestPayload struct {
	DeviceID   string     `json:"deviceId"`
	HeartRate  *int       `json:"heartRate"`
	SpO2       *int       `json:"spO2"`
	Timestamp  *time.Time `json:"timestamp"`
	Quality    string     `json:"quality"`
	Confidence *float64   `json:"confidence"`
}

// readingResponse is the public projection of a persisted measurement;
// the owning user and internal fields are excluded.
type readingResponse struct {
	ID         string  `json:"id"`
	DeviceID   string  `json:"deviceId"`
	HeartRate  int     `json:"heartRate"`
	SpO2       int     `json:"spO2"`
	Timestamp  string  `json:"timestamp"`
	Quality    string  `json:"quality"`
	Confidence float64 `json:"confidence"`
}

// ServeHTTP ingests one reading.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	device, ok := auth.DeviceFromContext(r.Context())
	if !ok {
		metrics.ObserveIngest(false, time.Since(start))
		metrics.IngestError("unauthenticated")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var payload ingestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		metrics.ObserveIngest(false, time.Since(start))
		metrics.IngestError("decode")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if payload.DeviceID == "" || payload.HeartRate == nil || payload.SpO2 == nil {
		metrics.ObserveIngest(false, time.Since(start))
		metrics.IngestError("missing_fields")
		http.Error(w, "deviceId, heartRate and spO2 are required", http.StatusBadRequest)
		return
	}

	record, err := h.service.Ingest(r.Context(), measurement.DeviceContext{DeviceID: device.DeviceID, UserID: device.UserID}, application.IngestRequest{
		DeviceID:   payload.DeviceID,
		HeartRate:  *payload.HeartRate,
		SpO2:       *payload.SpO2,
		Timestamp:  payload.Timestamp,
		Quality:    payload.Quality,
		Confidence: payload.Confidence,
	})
	if err != nil {
		metrics.ObserveIngest(false, time.Since(start))
		metrics.IngestError(ingestErrorReason(err))
		h.logger.Printf("measurement ingest: %v", err)
		writeDomainError(w, err)
		return
	}

	metrics.ObserveIngest(true, time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(readingResponse{
		ID:         record.ID,
		DeviceID:   record.DeviceID,
		HeartRate:  record.HeartRate,
		SpO2:       record.SpO2,
		Timestamp:  record.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Quality:    string(record.Quality),
		Confidence: record.Confidence,
	})
}

func ingestErrorReason(err error) string {
	switch {
	case errors.Is(err, measurement.ErrDeviceIDMismatch):
		return "device_mismatch"
	case errors.Is(err, measurement.ErrRangeViolation):
		return "range_violation"
	case errors.Is(err, measurement.ErrInvalidInput):
		return "invalid_input"
	default:
		return "storage"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, measurement.ErrDeviceIDMismatch):
		http.Error(w, "device id mismatch", http.StatusForbidden)
	case errors.Is(err, measurement.ErrRangeViolation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, measurement.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, measurement.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "query failed", http.StatusInternalServerError)
	}
}
