package audit

import (
	"context"
	"fmt"

	"sales-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// Recorder appends entries to the audit_log table. The log is a write-only
// sink from this service's point of view; nothing here reads it back.
type Recorder struct {
	db *sqlx.DB
}

// NewRecorder creates a new audit recorder
func NewRecorder(db *sqlx.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one audit entry. The timestamp is assigned by the database.
func (r *Recorder) Record(ctx context.Context, entry models.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (action, entity, entity_id, user_id, timestamp, details)
		 VALUES ($1, $2, $3, $4, NOW(), $5)`,
		entry.Action, entry.Entity, entry.EntityID, entry.UserID, entry.Details)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
