package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	measurement "vitals-cloud/internal/measurement/domain"
)

// Clock abstracts "now" for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real time in UTC.
type SystemClock struct{}

// Now returns the current UTC instant.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IngestRequest is the validated ingestion payload.
type IngestRequest struct {
	DeviceID   string
	HeartRate  int
	SpO2       int
	Timestamp  *time.Time
	Quality    string
	Confidence *float64
}

// IngestService validates and persists a single vital-sign reading,
// attributing it to the authenticated device and its owning user.
type IngestService struct {
	repo   measurement.Repository
	clock  Clock
	logger *log.Logger
}

// NewIngestService constructs an ingest service.
func NewIngestService(repo measurement.Repository, clock Clock, logger *log.Logger) (*IngestService, error) {
	if repo == nil {
		return nil, errors.New("ingest service: nil repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestService{repo: repo, clock: clock, logger: logger}, nil
}

// Ingest creates exactly one measurement record. The payload device must
// match the authenticated device identity; a mismatch is rejected, not
// silently corrected. Missing timestamp gets the server instant; quality
// and confidence get their defaults.
func (s *IngestService) Ingest(ctx context.Context, device measurement.DeviceContext, req IngestRequest) (measurement.Measurement, error) {
	if device.DeviceID == "" || device.UserID == "" {
		return measurement.Measurement{}, fmt.Errorf("%w: missing device identity", measurement.ErrInvalidInput)
	}
	if req.DeviceID == "" {
		return measurement.Measurement{}, fmt.Errorf("%w: deviceId is required", measurement.ErrInvalidInput)
	}
	if req.DeviceID != device.DeviceID {
		return measurement.Measurement{}, measurement.ErrDeviceIDMismatch
	}

	now := s.clock.Now()
	ts := now
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		ts = req.Timestamp.UTC()
	}
	quality := measurement.QualityGood
	if req.Quality != "" {
		quality = measurement.Quality(req.Quality)
	}
	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	record := measurement.Measurement{
		ID:         uuid.NewString(),
		UserID:     device.UserID,
		DeviceID:   device.DeviceID,
		HeartRate:  req.HeartRate,
		SpO2:       req.SpO2,
		Timestamp:  ts,
		Quality:    quality,
		Confidence: confidence,
		CreatedAt:  now,
	}
	if err := record.Validate(); err != nil {
		return measurement.Measurement{}, err
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		s.logger.Printf("measurement ingest: insert error: %v", err)
		return measurement.Measurement{}, err
	}
	return record, nil
}
