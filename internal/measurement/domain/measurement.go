package measurement

import (
	"context"
	"fmt"
	"time"
)

// Vital-sign domains. Values outside these bands are rejected, never
// clamped; the storage schema enforces the same bands with CHECK
// constraints.
const (
	HeartRateMin = 40
	HeartRateMax = 200
	SpO2Min      = 70
	SpO2Max      = 100
)

// Quality is the device-reported signal quality of a reading.
type Quality string

const (
	QualityGood Quality = "good"
	QualityFair Quality = "fair"
	QualityPoor Quality = "poor"
)

// IsValid checks if the quality is one of the supported values.
func (q Quality) IsValid() bool {
	switch q {
	case QualityGood, QualityFair, QualityPoor:
		return true
	default:
		return false
	}
}

// Measurement is a single vital-sign reading written to storage.
// Records are append-only: created exactly once, never mutated, deleted
// only in bulk when the owning user account is removed.
type Measurement struct {
	ID         string
	UserID     string
	DeviceID   string
	HeartRate  int
	SpO2       int
	Timestamp  time.Time
	Quality    Quality
	Confidence float64
	CreatedAt  time.Time
}

// Validate ensures domain invariants before the record reaches storage.
func (m Measurement) Validate() error {
	if m.UserID == "" || m.DeviceID == "" {
		return fmt.Errorf("%w: missing user or device id", ErrInvalidInput)
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidInput)
	}
	if !m.Quality.IsValid() {
		return fmt.Errorf("%w: quality %q", ErrInvalidInput, m.Quality)
	}
	if m.HeartRate < HeartRateMin || m.HeartRate > HeartRateMax {
		return fmt.Errorf("%w: heart rate %d outside [%d, %d]", ErrRangeViolation, m.HeartRate, HeartRateMin, HeartRateMax)
	}
	if m.SpO2 < SpO2Min || m.SpO2 > SpO2Max {
		return fmt.Errorf("%w: spo2 %d outside [%d, %d]", ErrRangeViolation, m.SpO2, SpO2Min, SpO2Max)
	}
	if m.Confidence < 0.0 || m.Confidence > 1.0 {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", ErrRangeViolation, m.Confidence)
	}
	return nil
}

// DeviceContext is the authenticated device identity attached to an
// ingestion call. It is threaded explicitly through parameters rather
// than read from an ambient request object.
type DeviceContext struct {
	DeviceID string
	UserID   string
}

// Repository persists measurements.
type Repository interface {
	Insert(ctx context.Context, m Measurement) error
	// DeleteByUser removes every measurement owned by the user. Invoked
	// only as part of account deletion.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// Query reads measurements back for list and single-day views.
type Query interface {
	// FindRange returns measurements with timestamp in [from, to],
	// most recent first.
	FindRange(ctx context.Context, userID string, from, to time.Time, limit, offset int) ([]Measurement, error)
	CountRange(ctx context.Context, userID string, from, to time.Time) (int64, error)
}
