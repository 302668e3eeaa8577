package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/riverbank-network/riverbank/internal/domain"
)

// Ledger implements domain.LedgerStore on the accounts table.
// Driver faults come back wrapped in domain.ErrStoreUnavailable so the
// processor can abort without partial mutation.
type Ledger struct {
	db *DB
}

// NewLedger returns the store bound to db.
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

func storeFault(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

// formatBalance renders the balance as the decimal text cell value.
func formatBalance(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ─── LedgerStore Operations ─────────────────────────────────────────────────

// Get returns the account or domain.ErrAccountNotFound.
func (l *Ledger) Get(ctx context.Context, id int64) (*domain.Account, error) {
	var acc domain.Account
	var balance string
	err := l.db.db.QueryRowContext(ctx, `
		SELECT id, name, handle, display_link, balance, created_at, last_transaction
		FROM accounts WHERE id = ?
	`, id).Scan(&acc.ID, &acc.Name, &acc.Handle, &acc.DisplayLink, &balance, &acc.CreatedAt, &acc.LastTransaction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, storeFault("get", err)
	}
	acc.Balance, err = strconv.ParseFloat(balance, 64)
	if err != nil {
		return nil, storeFault("get", fmt.Errorf("balance cell %q: %v", balance, err))
	}
	return &acc, nil
}

// Create inserts a new account row, or domain.ErrAccountExists.
func (l *Ledger) Create(ctx context.Context, acc domain.Account) error {
	res, err := l.db.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO accounts (id, name, handle, display_link, balance, created_at, last_transaction)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, acc.ID, acc.Name, acc.Handle, acc.DisplayLink, formatBalance(acc.Balance), acc.CreatedAt, acc.LastTransaction)
	if err != nil {
		return storeFault("create", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeFault("create", err)
	}
	if n == 0 {
		return domain.ErrAccountExists
	}
	return nil
}

// UpdateBalance writes the new balance and last-transaction timestamp.
func (l *Ledger) UpdateBalance(ctx context.Context, id int64, balance float64, timestamp string) error {
	res, err := l.db.db.ExecContext(ctx, `
		UPDATE accounts SET balance = ?, last_transaction = ? WHERE id = ?
	`, formatBalance(balance), timestamp, id)
	if err != nil {
		return storeFault("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeFault("update", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Delete removes the account row.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	res, err := l.db.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return storeFault("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeFault("delete", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// ListAll returns every account row.
func (l *Ledger) ListAll(ctx context.Context) ([]domain.Account, error) {
	rows, err := l.db.db.QueryContext(ctx, `
		SELECT id, name, handle, display_link, balance, created_at, last_transaction
		FROM accounts ORDER BY id
	`)
	if err != nil {
		return nil, storeFault("list", err)
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		var acc domain.Account
		var balance string
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Handle, &acc.DisplayLink, &balance, &acc.CreatedAt, &acc.LastTransaction); err != nil {
			return nil, storeFault("list", err)
		}
		if acc.Balance, err = strconv.ParseFloat(balance, 64); err != nil {
			return nil, storeFault("list", fmt.Errorf("balance cell %q: %v", balance, err))
		}
		result = append(result, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("list", err)
	}
	return result, nil
}
