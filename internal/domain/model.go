// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ─── Actor Types ────────────────────────────────────────────────────────────

// Actor is a chat identity driving commands and interactive views.
type Actor struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`   // Display name; used for executor attribution
	Handle string `json:"handle"` // Platform handle, without the "@"
	Bot    bool   `json:"bot"`    // Synthetic identities never get accounts
}

// RoleClass is the privilege class of a single identity.
// An identity holds exactly one class at a time.
type RoleClass int

const (
	RoleNone RoleClass = iota
	RoleManager
	RoleCoOwner
	RoleOwner
)

// String returns the lowercase class name.
func (c RoleClass) String() string {
	switch c {
	case RoleOwner:
		return "owner"
	case RoleCoOwner:
		return "co-owner"
	case RoleManager:
		return "manager"
	default:
		return "none"
	}
}

// ─── Account Types ──────────────────────────────────────────────────────────

// Account is one ledger row. The store owns it exclusively; the processor
// mutates it only through the store's update contract.
type Account struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Handle          string  `json:"handle"`
	DisplayLink     string  `json:"display_link"`
	Balance         float64 `json:"balance"`          // Invariant: never negative
	CreatedAt       string  `json:"created_at"`       // TimestampLayout
	LastTransaction string  `json:"last_transaction"` // Empty until first credit/debit
}

// ─── Transaction Types ──────────────────────────────────────────────────────

// TxKind is the signed direction of a recorded transaction.
type TxKind string

const (
	TxCredit TxKind = "added"
	TxDebit  TxKind = "used"
)

// Transaction is a recorded credit or debit with executor attribution.
// Retained per account up to HistoryCap entries, process lifetime only.
type Transaction struct {
	Timestamp    string  `json:"timestamp"`
	Amount       float64 `json:"amount"` // Always positive; Kind carries the sign
	Kind         TxKind  `json:"kind"`
	ExecutorID   int64   `json:"executor_id"`
	ExecutorName string  `json:"executor_name"`
}

// Signed returns the amount with the kind's sign applied.
func (t Transaction) Signed() float64 {
	if t.Kind == TxDebit {
		return -t.Amount
	}
	return t.Amount
}

// HistoryCap is the maximum retained transactions per account.
const HistoryCap = 10

// ─── Role State ─────────────────────────────────────────────────────────────

// RoleState is the persisted portion of the role configuration.
// The owner id is a process constant and never persisted.
type RoleState struct {
	CoOwners        []string `json:"co_owners"` // Handles; disjoint with Managers
	Managers        []string `json:"managers"`
	LogChannel      int64    `json:"log_channel"` // 0 means unset
	ConnectedGroups []int64  `json:"connected_groups"`
}

// ─── Audit Types ────────────────────────────────────────────────────────────

// AuditEvent is a timestamped human-readable record of a bank activity.
type AuditEvent struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ─── Timestamps & Amounts ───────────────────────────────────────────────────

// TimestampLayout is the ledger row timestamp format (MM-DD-YYYY, 12-hour).
const TimestampLayout = "01-02-2006, 03:04 PM"

// FormatTimestamp renders t in the ledger row layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseAmount parses a positional amount argument. The argument must be a
// positive finite number; anything else is ErrInvalidAmount. ParseFloat
// accepts "NaN" and "Inf", and NaN slips past an ordering check because every
// comparison against it is false, so both are screened out explicitly before
// an amount can reach balance arithmetic.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
