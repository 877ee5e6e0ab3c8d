package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists audit entries to Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// Log writes one entry, filling id, timestamp and fingerprint.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_logs (
	id, actor, actor_role, action, patient_id, resource, fingerprint, ip, user_agent, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)`, entry.ID, entry.Actor, entry.ActorRole, entry.Action, entry.PatientID, entry.Resource,
		entry.Fingerprint(), entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}
