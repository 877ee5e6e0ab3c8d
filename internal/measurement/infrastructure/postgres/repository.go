package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	measurement "vitals-cloud/internal/measurement/domain"
)

const defaultMeasurementTable = "measurements"

// pgCheckViolation is the SQLSTATE for a CHECK constraint failure, which
// is how the schema surfaces a vital-sign range violation.
const pgCheckViolation = "23514"

// MeasurementRepository is a Postgres implementation for measurement writes.
type MeasurementRepository struct {
	db    *sql.DB
	table string
}

// NewMeasurementRepository constructs a repository with default table name.
func NewMeasurementRepository(db *sql.DB, opts ...RepositoryOption) *MeasurementRepository {
	repo := &MeasurementRepository{db: db, table: defaultMeasurementTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*MeasurementRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *MeasurementRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert persists one measurement. A schema CHECK failure is classified
// as a range violation so callers can answer with the violated
// constraint instead of a generic storage error.
func (r *MeasurementRepository) Insert(ctx context.Context, m measurement.Measurement) error {
	if r == nil || r.db == nil {
		return errors.New("measurement repo: nil db")
	}
	if m.ID == "" || m.UserID == "" || m.DeviceID == "" || m.Timestamp.IsZero() {
		return fmt.Errorf("%w: incomplete measurement", measurement.ErrInvalidInput)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	user_id,
	device_id,
	heart_rate,
	spo2,
	ts,
	quality,
	confidence,
	created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		m.ID,
		m.UserID,
		m.DeviceID,
		m.HeartRate,
		m.SpO2,
		m.Timestamp,
		string(m.Quality),
		m.Confidence,
		m.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return fmt.Errorf("%w: %s", measurement.ErrRangeViolation, pgErr.ConstraintName)
		}
		return err
	}
	return nil
}

// DeleteByUser removes every measurement owned by the user and reports
// how many records were deleted.
func (r *MeasurementRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("measurement repo: nil db")
	}
	if userID == "" {
		return 0, fmt.Errorf("%w: missing user id", measurement.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, r.table), userID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}
