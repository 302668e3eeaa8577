package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// LedgerStore abstracts the durable row-oriented account backend.
// Every method may fail with a wrapped ErrStoreUnavailable on backend fault;
// callers treat that as fatal to the operation and abort without partial
// mutation.
type LedgerStore interface {
	// Get returns the account or ErrAccountNotFound.
	Get(ctx context.Context, id int64) (*Account, error)

	// Create inserts a new row, or ErrAccountExists.
	Create(ctx context.Context, acc Account) error

	// UpdateBalance writes the new balance and last-transaction timestamp,
	// or ErrAccountNotFound.
	UpdateBalance(ctx context.Context, id int64, balance float64, timestamp string) error

	// Delete removes the row, or ErrAccountNotFound.
	Delete(ctx context.Context, id int64) error

	// ListAll returns every account in unspecified order.
	ListAll(ctx context.Context) ([]Account, error)
}

// AuditSink receives formatted bank activity records.
// Delivery is best-effort; a sink failure never fails the operation.
type AuditSink interface {
	Emit(ctx context.Context, ev AuditEvent)
}

// RoleStore persists the mutable role configuration between restarts.
type RoleStore interface {
	Load() (RoleState, error)
	Save(RoleState) error
}
