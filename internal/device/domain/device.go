package device

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"vitals-cloud/internal/timezone"
)

var (
	// ErrNotFound indicates the device is absent.
	ErrNotFound = errors.New("device: not found")
	// ErrInvalidConfig indicates a config update violates policy.
	ErrInvalidConfig = errors.New("device: invalid config")
)

var activeTimePattern = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

// FrequencyBand bounds the allowed measurement frequency in seconds.
type FrequencyBand struct {
	Min int
	Max int
}

// StandardBand applies to the regular config-update path; ExtendedBand
// is the looser band for privileged maintenance updates. Policy is
// applied at config-update time, not at read time.
var (
	StandardBand = FrequencyBand{Min: 900, Max: 14400}
	ExtendedBand = FrequencyBand{Min: 30, Max: 14400}
)

// Config is the device-held sampling configuration. The timezone is
// free-form; readers fall back to the fixed default when it is absent or
// does not resolve.
type Config struct {
	MeasurementFrequency int    `json:"measurementFrequency" yaml:"measurement_frequency"`
	ActiveStartTime      string `json:"activeStartTime" yaml:"active_start_time"`
	ActiveEndTime        string `json:"activeEndTime" yaml:"active_end_time"`
	Timezone             string `json:"timezone" yaml:"timezone"`
}

// Validate checks the config against the given frequency band.
func (c Config) Validate(band FrequencyBand) error {
	if c.MeasurementFrequency < band.Min || c.MeasurementFrequency > band.Max {
		return fmt.Errorf("%w: measurementFrequency %d outside [%d, %d]", ErrInvalidConfig, c.MeasurementFrequency, band.Min, band.Max)
	}
	if c.ActiveStartTime != "" && !activeTimePattern.MatchString(c.ActiveStartTime) {
		return fmt.Errorf("%w: activeStartTime %q is not HH:MM", ErrInvalidConfig, c.ActiveStartTime)
	}
	if c.ActiveEndTime != "" && !activeTimePattern.MatchString(c.ActiveEndTime) {
		return fmt.Errorf("%w: activeEndTime %q is not HH:MM", ErrInvalidConfig, c.ActiveEndTime)
	}
	return nil
}

// TimezoneOrDefault returns the configured zone when it resolves,
// otherwise the fixed default.
func (c Config) TimezoneOrDefault() string {
	if c.Timezone == "" {
		return timezone.DefaultZone
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return timezone.DefaultZone
	}
	return c.Timezone
}

// Device is a registered measurement source owned by one user.
type Device struct {
	ID        string
	UserID    string
	Name      string
	APIKey    string
	Config    Config
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists devices and their configs.
type Repository interface {
	Get(ctx context.Context, deviceID string) (*Device, error)
	// GetByAPIKey resolves the device submitting a reading; used by the
	// ingest auth path.
	GetByAPIKey(ctx context.Context, apiKey string) (*Device, error)
	ListByUser(ctx context.Context, userID string) ([]Device, error)
	UpdateConfig(ctx context.Context, deviceID string, cfg Config) error
	// FirstDeviceTimezone returns the configured timezone of the user's
	// oldest registered device, or "" when the user has no devices.
	FirstDeviceTimezone(ctx context.Context, userID string) (string, error)
}
