package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Authorization errors
	ErrPermissionDenied = errors.New("actor is not permitted to perform this operation")
	ErrNotPrivileged    = errors.New("actor holds no privileged role")

	// Validation errors
	ErrMissingTarget     = errors.New("command requires a reply target")
	ErrBotTarget         = errors.New("synthetic identities cannot hold accounts")
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrInsufficientFunds = errors.New("amount exceeds current balance")
	ErrAlreadyAssigned   = errors.New("actor already holds the target role")
	ErrGroupConnected    = errors.New("group is already connected to the bank")

	// Store errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountExists    = errors.New("account already exists")
	ErrStoreUnavailable = errors.New("ledger store is unavailable")

	// Routing errors
	ErrMalformedRouting = errors.New("interaction routing key is malformed")
)
