// Package bank implements the authorization-gated ledger mutation engine.
//
// Every operation terminates in exactly one of Applied, Rejected or Aborted
// (see domain.Outcome). Rejections are silent to the end user; the outcome
// carries the precondition for callers and tests. A store fault
// aborts the operation with no partial mutation and is never retried;
// the single ledger write is always the last validated step of a flow.
package bank

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riverbank-network/riverbank/internal/domain"
	"github.com/riverbank-network/riverbank/internal/infra/observability"
	"github.com/riverbank-network/riverbank/internal/ledger"
	"github.com/riverbank-network/riverbank/internal/roles"
)

// Processor validates and executes ledger mutations.
type Processor struct {
	auth    *roles.Authority
	store   domain.LedgerStore
	history *ledger.History
	audit   domain.AuditSink
	now     func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex // Per-account; serializes read-modify-write
}

// NewProcessor wires the mutation engine. The audit sink may be nil.
func NewProcessor(auth *roles.Authority, store domain.LedgerStore, history *ledger.History, audit domain.AuditSink) *Processor {
	return &Processor{
		auth:    auth,
		store:   store,
		history: history,
		audit:   audit,
		now:     time.Now,
		locks:   make(map[int64]*sync.Mutex),
	}
}

// SetClock overrides the processor clock. Test hook.
func (p *Processor) SetClock(now func() time.Time) { p.now = now }

// lockAccount serializes credit/debit/reset on one account id, closing the
// lost-update window between the balance read and the balance write.
func (p *Processor) lockAccount(id int64) func() {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &sync.Mutex{}
		p.locks[id] = l
	}
	p.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// ─── Account Commands ───────────────────────────────────────────────────────

// CreateAccount opens a zero-balance account for the target.
// Preconditions: acting identity can mutate the ledger, the target is a real
// (non-synthetic) identity, and no row exists yet. Only the duplicate-account
// case surfaces a transient notice; every other rejection is silent.
func (p *Processor) CreateAccount(ctx context.Context, actor, target domain.Actor) domain.Outcome {
	const op = "new"
	if !p.auth.CanMutateLedger(actor) {
		return p.finish(op, domain.Rejected(domain.ErrPermissionDenied))
	}
	if target.ID == 0 {
		return p.finish(op, domain.Rejected(domain.ErrMissingTarget))
	}
	if target.Bot {
		return p.finish(op, domain.Rejected(domain.ErrBotTarget))
	}

	unlock := p.lockAccount(target.ID)
	defer unlock()

	_, err := p.store.Get(ctx, target.ID)
	switch {
	case err == nil:
		return p.finish(op, domain.RejectedNotice(domain.ErrAccountExists, "user already has an account"))
	case !errors.Is(err, domain.ErrAccountNotFound):
		return p.finish(op, domain.Aborted(err))
	}

	handle := target.Handle
	if handle != "" {
		handle = "@" + handle
	}
	acc := domain.Account{
		ID:          target.ID,
		Name:        target.Name,
		Handle:      handle,
		DisplayLink: fmt.Sprintf("user://%d", target.ID),
		Balance:     0,
		CreatedAt:   domain.FormatTimestamp(p.now()),
	}
	if err := p.store.Create(ctx, acc); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return p.finish(op, domain.RejectedNotice(domain.ErrAccountExists, "user already has an account"))
		}
		return p.finish(op, domain.Aborted(err))
	}

	p.emit(ctx, "account_created", fmt.Sprintf("%s created account for %s", actor.Name, target.Name))
	return p.finish(op, domain.Applied())
}

// Credit adds a positive amount to the target's balance, appends a credit
// transaction to the history, then audits. The three steps are sequential,
// not atomic as a unit: the store write is the source of truth and history
// is advisory display state.
func (p *Processor) Credit(ctx context.Context, actor, target domain.Actor, amountArg string) domain.Outcome {
	return p.move(ctx, "add", actor, target, amountArg, domain.TxCredit)
}

// Debit removes a positive amount from the target's balance. An amount
// exceeding the current balance is rejected with no mutation, preserving the
// balance ≥ 0 invariant.
func (p *Processor) Debit(ctx context.Context, actor, target domain.Actor, amountArg string) domain.Outcome {
	return p.move(ctx, "use", actor, target, amountArg, domain.TxDebit)
}

func (p *Processor) move(ctx context.Context, op string, actor, target domain.Actor, amountArg string, kind domain.TxKind) domain.Outcome {
	if !p.auth.CanMutateLedger(actor) {
		return p.finish(op, domain.Rejected(domain.ErrPermissionDenied))
	}
	if target.ID == 0 {
		return p.finish(op, domain.Rejected(domain.ErrMissingTarget))
	}
	amount, err := domain.ParseAmount(amountArg)
	if err != nil {
		return p.finish(op, domain.Rejected(err))
	}

	unlock := p.lockAccount(target.ID)
	defer unlock()

	acc, err := p.store.Get(ctx, target.ID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return p.finish(op, domain.Rejected(err))
		}
		return p.finish(op, domain.Aborted(err))
	}

	balance := acc.Balance
	if kind == domain.TxDebit {
		if amount > balance {
			return p.finish(op, domain.Rejected(domain.ErrInsufficientFunds))
		}
		balance -= amount
	} else {
		balance += amount
	}

	timestamp := domain.FormatTimestamp(p.now())
	if err := p.store.UpdateBalance(ctx, target.ID, balance, timestamp); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return p.finish(op, domain.Rejected(err))
		}
		return p.finish(op, domain.Aborted(err))
	}

	p.history.Append(target.ID, domain.Transaction{
		Timestamp:    timestamp,
		Amount:       amount,
		Kind:         kind,
		ExecutorID:   actor.ID,
		ExecutorName: actor.Name,
	})

	verb, auditKind := "added", "funds_added"
	if kind == domain.TxDebit {
		verb, auditKind = "used", "funds_used"
	}
	p.emit(ctx, auditKind, fmt.Sprintf("%s %s %.0f for %s, new balance %.0f",
		actor.Name, verb, amount, target.Name, balance))
	return p.finish(op, domain.Applied())
}

// Reset zeroes the target's balance, stamps the last-transaction timestamp
// and drops the retained history.
func (p *Processor) Reset(ctx context.Context, actor, target domain.Actor) domain.Outcome {
	const op = "reset"
	if !p.auth.CanMutateLedger(actor) {
		return p.finish(op, domain.Rejected(domain.ErrPermissionDenied))
	}
	if target.ID == 0 {
		return p.finish(op, domain.Rejected(domain.ErrMissingTarget))
	}

	unlock := p.lockAccount(target.ID)
	defer unlock()

	if _, err := p.store.Get(ctx, target.ID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return p.finish(op, domain.Rejected(err))
		}
		return p.finish(op, domain.Aborted(err))
	}

	timestamp := domain.FormatTimestamp(p.now())
	if err := p.store.UpdateBalance(ctx, target.ID, 0, timestamp); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return p.finish(op, domain.Rejected(err))
		}
		return p.finish(op, domain.Aborted(err))
	}
	p.history.Clear(target.ID)

	p.emit(ctx, "account_reset", fmt.Sprintf("%s reset account of %s", actor.Name, target.Name))
	return p.finish(op, domain.Applied())
}

// DeleteDeparted removes the account of an identity that left the group.
// This path is driven by a membership-departure event, not a chat command,
// so it carries no role gate. Only the account's existence is required.
// Retained history survives the deletion.
func (p *Processor) DeleteDeparted(ctx context.Context, target domain.Actor) domain.Outcome {
	const op = "departed"
	if _, err := p.store.Get(ctx, target.ID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return p.finish(op, domain.Rejected(err))
		}
		return p.finish(op, domain.Aborted(err))
	}
	if err := p.store.Delete(ctx, target.ID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return p.finish(op, domain.Rejected(err))
		}
		return p.finish(op, domain.Aborted(err))
	}

	p.emit(ctx, "account_auto_deleted", fmt.Sprintf("%s left the group, account deleted", target.Name))
	return p.finish(op, domain.Applied())
}

// ─── Role & Configuration Commands ──────────────────────────────────────────

// PromoteCoOwner moves the target into the co-owner set.
func (p *Processor) PromoteCoOwner(ctx context.Context, actor, target domain.Actor) domain.Outcome {
	return p.assignRole(ctx, "co", actor, target, domain.RoleCoOwner)
}

// PromoteManager moves the target into the manager set.
func (p *Processor) PromoteManager(ctx context.Context, actor, target domain.Actor) domain.Outcome {
	return p.assignRole(ctx, "prom", actor, target, domain.RoleManager)
}

func (p *Processor) assignRole(ctx context.Context, op string, actor, target domain.Actor, class domain.RoleClass) domain.Outcome {
	if !p.auth.CanManageRoles(actor) {
		return p.finish(op, domain.Rejected(domain.ErrPermissionDenied))
	}
	if target.ID == 0 {
		return p.finish(op, domain.Rejected(domain.ErrMissingTarget))
	}
	if target.Bot {
		return p.finish(op, domain.Rejected(domain.ErrBotTarget))
	}

	var err error
	var kind string
	if class == domain.RoleCoOwner {
		err = p.auth.PromoteCoOwner(target.Handle)
		kind = "co_owner_promoted"
	} else {
		err = p.auth.PromoteManager(target.Handle)
		kind = "manager_promoted"
	}
	if err != nil {
		return p.finish(op, domain.Rejected(err))
	}

	p.emit(ctx, kind, fmt.Sprintf("%s promoted %s to %s", actor.Name, target.Name, class))
	return p.finish(op, domain.Applied())
}

// Demote strips the target of any privileged role.
func (p *Processor) Demote(ctx context.Context, actor, target domain.Actor) domain.Outcome {
	const op = "dem"
	if !p.auth.CanManageRoles(actor) {
		return p.finish(op, domain.Rejected(domain.ErrPermissionDenied))
	}
	if target.ID == 0 {
		return p.finish(op, domain.Rejected(domain.ErrMissingTarget))
	}
	if target.Bot {
		return p.finish(op, domain.Rejected(domain.ErrBotTarget))
	}
	if err := p.auth.Demote(target.Handle); err != nil {
		return p.finish(op, domain.Rejected(err))
	}

	p.emit(ctx, "demoted", fmt.Sprintf("%s demoted %s", actor.Name, target.Name))
	return p.finish(op, domain.Applied())
}

// SetLogChannel routes audit delivery to the given channel.
func (p *Processor) SetLogChannel(ctx context.Context, actor domain.Actor, channelID int64) domain.Outcome {
	const op = "setlog"
	if !p.auth.CanManageRoles(actor) {
		return p.finish(op, domain.Rejected(domain.ErrPermissionDenied))
	}
	p.auth.SetLogChannel(channelID)

	p.emit(ctx, "log_channel_set", fmt.Sprintf("%s set log channel %d", actor.Name, channelID))
	return p.finish(op, domain.Applied())
}

// ConnectGroup adds a chat group to the shared-bank set.
func (p *Processor) ConnectGroup(ctx context.Context, actor domain.Actor, groupID int64) domain.Outcome {
	const op = "connect"
	if !p.auth.CanManageRoles(actor) {
		return p.finish(op, domain.Rejected(domain.ErrPermissionDenied))
	}
	if err := p.auth.ConnectGroup(groupID); err != nil {
		return p.finish(op, domain.RejectedNotice(err, "this group is already connected to the bank"))
	}

	p.emit(ctx, "group_connected", fmt.Sprintf("%s connected group %d to the bank", actor.Name, groupID))
	return p.finish(op, domain.Applied())
}

// ─── Internals ──────────────────────────────────────────────────────────────

func (p *Processor) emit(ctx context.Context, kind, text string) {
	observability.AuditEvents.WithLabelValues(kind).Inc()
	if p.audit == nil {
		return
	}
	p.audit.Emit(ctx, domain.AuditEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Text:      text,
		Timestamp: p.now(),
	})
}

func (p *Processor) finish(op string, out domain.Outcome) domain.Outcome {
	observability.CommandsTotal.WithLabelValues(op, out.Status.String()).Inc()
	if out.Status == domain.StatusAborted {
		observability.StoreFaults.Inc()
		log.Printf("[bank] %s aborted: %v", op, out.Fault)
	}
	return out
}
