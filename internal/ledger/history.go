// Package ledger implements the bounded in-memory transaction history.
//
// History is advisory display state, not the source of truth: the durable
// balance lives in the ledger store, and a history shorter than reality is
// acceptable. Entries do not survive the process.
package ledger

import (
	"sync"

	"github.com/riverbank-network/riverbank/internal/domain"
)

// History keeps the most recent transactions per account, capped at
// domain.HistoryCap entries with oldest-first eviction.
type History struct {
	mu      sync.RWMutex
	entries map[int64][]domain.Transaction
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{entries: make(map[int64][]domain.Transaction)}
}

// Append records a transaction at the logical end of the account's history,
// evicting the oldest entry once the cap is exceeded.
func (h *History) Append(accountID int64, tx domain.Transaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := append(h.entries[accountID], tx)
	if len(list) > domain.HistoryCap {
		list = list[len(list)-domain.HistoryCap:]
	}
	h.entries[accountID] = list
}

// Recent returns the retained transactions newest first.
func (h *History) Recent(accountID int64) []domain.Transaction {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.entries[accountID]
	out := make([]domain.Transaction, len(list))
	for i, tx := range list {
		out[len(list)-1-i] = tx
	}
	return out
}

// Len returns the number of retained transactions for the account.
func (h *History) Len(accountID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries[accountID])
}

// PerExecutorNet sums the signed amounts of the retained history grouped by
// executor display name. Two executors sharing a display name are merged;
// attribution is by name, not identity, matching the rendered view.
// The total does not necessarily equal the stored balance once eviction has
// truncated the history.
func (h *History) PerExecutorNet(accountID int64) map[string]float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	net := make(map[string]float64)
	for _, tx := range h.entries[accountID] {
		net[tx.ExecutorName] += tx.Signed()
	}
	return net
}

// Clear drops all retained history for the account.
func (h *History) Clear(accountID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, accountID)
}
