// Package audit keeps an append-only trail of who read which patient's
// health data.
package audit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Entry is one recorded access: the acting user, the patient whose
// records were touched, and the request surface it came through.
type Entry struct {
	ID        string
	Actor     string
	ActorRole string
	Action    string
	PatientID string
	Resource  string
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// Fingerprint is a stable digest over the access tuple, letting shipped
// log lines be checked for tampering without the full row.
func (e Entry) Fingerprint() string {
	sum := sha256.Sum256([]byte(e.Actor + "\x00" + e.Action + "\x00" + e.PatientID + "\x00" + e.Resource))
	return hex.EncodeToString(sum[:])
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "audit-" + hex.EncodeToString(buf)
}
