package sqlite

import (
	"context"
	"log"
	"time"

	"github.com/riverbank-network/riverbank/internal/domain"
)

// AuditLog implements domain.AuditSink on the audit_log table.
// Delivery is best-effort: an insert failure is logged and swallowed, never
// surfaced to the operation that emitted the event.
type AuditLog struct {
	db *DB
}

// NewAuditLog returns the sink bound to db.
func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db}
}

// Emit records the event.
func (a *AuditLog) Emit(ctx context.Context, ev domain.AuditEvent) {
	_, err := a.db.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, kind, text, timestamp)
		VALUES (?, ?, ?, ?)
	`, ev.ID, ev.Kind, ev.Text, ev.Timestamp.Format(time.RFC3339))
	if err != nil {
		log.Printf("[audit] drop event %s (%s): %v", ev.ID, ev.Kind, err)
	}
}

// Recent returns up to limit events, newest first.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	rows, err := a.db.db.QueryContext(ctx, `
		SELECT id, kind, text, timestamp FROM audit_log
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, storeFault("audit list", err)
	}
	defer rows.Close()

	var result []domain.AuditEvent
	for rows.Next() {
		var ev domain.AuditEvent
		var ts string
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Text, &ts); err != nil {
			return nil, storeFault("audit list", err)
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339, ts)
		result = append(result, ev)
	}
	return result, rows.Err()
}
