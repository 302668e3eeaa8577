package domain

// ─── Command Outcomes ───────────────────────────────────────────────────────
// Every command terminates in exactly one of these states. The user-facing
// behavior for Rejected is silence (the command message is removed with no
// visible error); the explicit outcome exists so callers and tests can
// observe what happened without depending on absence of output.

// OutcomeStatus is the terminal state of one command invocation.
type OutcomeStatus int

const (
	// StatusApplied means the mutation was validated and written.
	StatusApplied OutcomeStatus = iota
	// StatusRejected means a precondition failed; nothing was mutated.
	StatusRejected
	// StatusAborted means the store faulted; nothing was partially mutated.
	StatusAborted
)

// String returns the status name.
func (s OutcomeStatus) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusRejected:
		return "rejected"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the result of one command invocation.
type Outcome struct {
	Status OutcomeStatus
	Reason error  // Rejection precondition, nil when Applied
	Fault  error  // Store fault, set only when Aborted
	Notice string // Transient user-visible notice shown before suppression
}

// Applied returns a successful outcome.
func Applied() Outcome {
	return Outcome{Status: StatusApplied}
}

// Rejected returns a silent rejection for the given precondition.
func Rejected(reason error) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason}
}

// RejectedNotice returns a rejection that first shows a transient notice.
func RejectedNotice(reason error, notice string) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason, Notice: notice}
}

// Aborted returns an outcome for a store fault.
func Aborted(fault error) Outcome {
	return Outcome{Status: StatusAborted, Fault: fault}
}

// OK reports whether the command applied.
func (o Outcome) OK() bool { return o.Status == StatusApplied }
