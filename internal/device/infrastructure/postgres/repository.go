package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	device "vitals-cloud/internal/device/domain"
)

const defaultDeviceTable = "devices"

// DeviceRepository is a Postgres implementation for the device registry.
type DeviceRepository struct {
	db    *sql.DB
	table string
}

// NewDeviceRepository constructs a repository with default table name.
func NewDeviceRepository(db *sql.DB, opts ...Option) *DeviceRepository {
	repo := &DeviceRepository{db: db, table: defaultDeviceTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*DeviceRepository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *DeviceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const deviceColumns = `id, user_id, name, api_key, measurement_frequency, active_start_time, active_end_time, timezone, created_at, updated_at`

// Get loads a device by id.
func (r *DeviceRepository) Get(ctx context.Context, deviceID string) (*device.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, deviceColumns, r.table)
	return r.scanOne(r.db.QueryRowContext(ctx, query, deviceID))
}

// GetByAPIKey loads the device holding the given ingest key.
func (r *DeviceRepository) GetByAPIKey(ctx context.Context, apiKey string) (*device.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if apiKey == "" {
		return nil, device.ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE api_key = $1`, deviceColumns, r.table)
	return r.scanOne(r.db.QueryRowContext(ctx, query, apiKey))
}

// ListByUser returns the user's devices, oldest first.
func (r *DeviceRepository) ListByUser(ctx context.Context, userID string) ([]device.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at ASC`, deviceColumns, r.table)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]device.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

// UpdateConfig stores a validated config for the device.
func (r *DeviceRepository) UpdateConfig(ctx context.Context, deviceID string, cfg device.Config) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s SET
	measurement_frequency = $2,
	active_start_time = $3,
	active_end_time = $4,
	timezone = $5,
	updated_at = NOW()
WHERE id = $1`, r.table)
	result, err := r.db.ExecContext(ctx, query, deviceID, cfg.MeasurementFrequency, cfg.ActiveStartTime, cfg.ActiveEndTime, cfg.Timezone)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return device.ErrNotFound
	}
	return nil
}

// FirstDeviceTimezone returns the oldest device's configured zone, or ""
// when the user has no devices.
func (r *DeviceRepository) FirstDeviceTimezone(ctx context.Context, userID string) (string, error) {
	if r == nil || r.db == nil {
		return "", errors.New("device repo: nil db")
	}
	query := fmt.Sprintf(`SELECT timezone FROM %s WHERE user_id = $1 ORDER BY created_at ASC LIMIT 1`, r.table)
	var zone sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&zone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return zone.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DeviceRepository) scanOne(row *sql.Row) (*device.Device, error) {
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, device.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func scanDevice(row rowScanner) (*device.Device, error) {
	var d device.Device
	var start, end, zone sql.NullString
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Name,
		&d.APIKey,
		&d.Config.MeasurementFrequency,
		&start,
		&end,
		&zone,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Config.ActiveStartTime = start.String
	d.Config.ActiveEndTime = end.String
	d.Config.Timezone = zone.String
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}
