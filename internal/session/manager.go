// Package session implements the ephemeral interactive view registry.
//
// A session is one live interactive message: a view kind, the account it
// targets, the actor who opened it and the message identity. Sessions are
// removed on explicit close, superseded on navigation, or expired by a
// per-render timer. Timers are cancelled on close and supersede, and the
// fire path re-checks registration, so a timer firing for an already-removed
// session is always a no-op.
package session

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riverbank-network/riverbank/internal/domain"
	"github.com/riverbank-network/riverbank/internal/infra/observability"
	"github.com/riverbank-network/riverbank/internal/ledger"
	"github.com/riverbank-network/riverbank/internal/roles"
)

// DefaultExpiry is the untouched-view lifetime; each re-render restarts it.
const DefaultExpiry = 60 * time.Second

// session is one registered interactive view instance.
type session struct {
	kind   ViewKind
	target int64 // 0 for summary-scoped views
	owner  int64
	gen    int // Bumped on every re-render; guards stale timer fires
	timer  *time.Timer
}

// Manager renders views, routes callback-driven navigation, enforces session
// ownership and schedules auto-expiry.
type Manager struct {
	store     domain.LedgerStore
	history   *ledger.History
	auth      *roles.Authority
	presenter Presenter
	window    time.Duration

	mu       sync.Mutex
	sessions map[string]*session // messageID → session
}

// NewManager wires the session registry. A non-positive window falls back to
// DefaultExpiry.
func NewManager(store domain.LedgerStore, history *ledger.History, auth *roles.Authority, presenter Presenter, window time.Duration) *Manager {
	if window <= 0 {
		window = DefaultExpiry
	}
	return &Manager{
		store:     store,
		history:   history,
		auth:      auth,
		presenter: presenter,
		window:    window,
		sessions:  make(map[string]*session),
	}
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ─── Initial Views ──────────────────────────────────────────────────────────

// OpenBalance renders the balance view for target and registers a session
// owned by actor. Checking another actor's account requires ledger mutation
// rights; checking one's own account is always permitted. A missing account
// is a silent rejection.
func (m *Manager) OpenBalance(ctx context.Context, actor, target domain.Actor) (string, domain.Outcome) {
	if target.ID != actor.ID && !m.auth.CanMutateLedger(actor) {
		return "", domain.Rejected(domain.ErrPermissionDenied)
	}
	v, err := m.renderBalance(ctx, target.ID)
	if err != nil {
		return "", renderOutcome(err)
	}
	return m.open(ctx, ViewBalance, target.ID, actor.ID, v), domain.Applied()
}

// OpenSummary renders the bank summary view. Owner and co-owners only.
func (m *Manager) OpenSummary(ctx context.Context, actor domain.Actor) (string, domain.Outcome) {
	if !m.auth.CanManageRoles(actor) {
		return "", domain.Rejected(domain.ErrPermissionDenied)
	}
	v, err := m.renderSummary(ctx)
	if err != nil {
		return "", renderOutcome(err)
	}
	return m.open(ctx, ViewSummary, 0, actor.ID, v), domain.Applied()
}

func (m *Manager) open(ctx context.Context, kind ViewKind, targetID, ownerID int64, v View) string {
	messageID := uuid.NewString()

	// The message must exist before the expiry timer can remove it, so the
	// first render happens before registration arms the timer.
	m.presenter.Show(ctx, messageID, v)

	sess := &session{kind: kind, target: targetID, owner: ownerID}
	m.mu.Lock()
	m.sessions[messageID] = sess
	m.schedule(messageID, sess)
	m.mu.Unlock()

	observability.SessionsActive.Inc()
	return messageID
}

// ─── Navigation ─────────────────────────────────────────────────────────────

// Account-scoped actions carry {action}_{targetID}_{ownerID}; summary-scoped
// actions carry {action}_{ownerID}. Longer names first: "history_back" must
// not parse as "history", nor "close_bal" as "close".
var accountActions = []string{"history_back", "close_bal", "per_admin", "bal_back", "history"}
var summaryActions = []string{"admin_list", "data_list", "go_back", "close"}

// routing is a strictly parsed interaction key.
type routing struct {
	action string
	target int64 // Only for account-scoped actions
	owner  int64
	scoped bool // true when account-scoped
}

func parseRouting(key string) (routing, error) {
	for _, name := range accountActions {
		rest, ok := strings.CutPrefix(key, name+"_")
		if !ok {
			continue
		}
		parts := strings.Split(rest, "_")
		if len(parts) != 2 {
			return routing{}, domain.ErrMalformedRouting
		}
		target, err1 := strconv.ParseInt(parts[0], 10, 64)
		owner, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil {
			return routing{}, domain.ErrMalformedRouting
		}
		return routing{action: name, target: target, owner: owner, scoped: true}, nil
	}
	for _, name := range summaryActions {
		rest, ok := strings.CutPrefix(key, name+"_")
		if !ok {
			continue
		}
		owner, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || strings.Contains(rest, "_") {
			return routing{}, domain.ErrMalformedRouting
		}
		return routing{action: name, owner: owner}, nil
	}
	return routing{}, domain.ErrMalformedRouting
}

// transitions maps an action to the view it renders next.
var transitions = map[string]ViewKind{
	"history":      ViewHistory,
	"per_admin":    ViewPerAdmin,
	"history_back": ViewHistory,
	"bal_back":     ViewBalance,
	"data_list":    ViewDataList,
	"admin_list":   ViewAdminList,
	"go_back":      ViewSummary,
}

// HandleAction routes one interaction action against the session living on
// messageID. Malformed keys, unauthorized actors and unknown sessions are
// acknowledged no-ops: no re-render, no registry mutation, no timer reset.
func (m *Manager) HandleAction(ctx context.Context, actor domain.Actor, messageID, key string) domain.Outcome {
	r, err := parseRouting(key)
	if err != nil {
		observability.MalformedRoutingKeys.Inc()
		return domain.Rejected(domain.ErrMalformedRouting)
	}

	// Ownership gate: the acting identity must match the owner id embedded
	// in the routing key. An unauthorized click is observably a no-op.
	if actor.ID != r.owner {
		observability.UnauthorizedActions.Inc()
		return domain.Rejected(domain.ErrPermissionDenied)
	}

	m.mu.Lock()
	sess, ok := m.sessions[messageID]
	if !ok || sess.owner != r.owner || (r.scoped && sess.target != r.target) {
		m.mu.Unlock()
		return domain.Rejected(domain.ErrMalformedRouting)
	}
	m.mu.Unlock()

	if r.action == "close" || r.action == "close_bal" {
		m.close(ctx, messageID)
		return domain.Applied()
	}

	next := transitions[r.action]
	v, err := m.render(ctx, next, r.target)
	if err != nil {
		// Fresh data unavailable; leave the current view and timer as-is.
		log.Printf("[session] render %s for message %s: %v", next, messageID, err)
		return renderOutcome(err)
	}

	m.mu.Lock()
	sess, ok = m.sessions[messageID]
	if !ok {
		// Closed or expired while rendering.
		m.mu.Unlock()
		return domain.Rejected(domain.ErrMalformedRouting)
	}
	sess.kind = next
	if sess.timer != nil {
		sess.timer.Stop()
	}
	m.schedule(messageID, sess)
	m.mu.Unlock()

	m.presenter.Show(ctx, messageID, v)
	return domain.Applied()
}

// ─── Removal Paths ──────────────────────────────────────────────────────────

// close removes the session immediately, without waiting for expiry.
func (m *Manager) close(ctx context.Context, messageID string) {
	m.mu.Lock()
	sess, ok := m.sessions[messageID]
	if !ok {
		// Already expired; removal is idempotent.
		m.mu.Unlock()
		return
	}
	if sess.timer != nil {
		sess.timer.Stop()
	}
	delete(m.sessions, messageID)
	m.mu.Unlock()

	observability.SessionsActive.Dec()
	observability.SessionsClosed.Inc()
	m.presenter.Remove(ctx, messageID)
}

// schedule arms the expiry timer for the session's current render.
// Caller holds m.mu.
func (m *Manager) schedule(messageID string, sess *session) {
	sess.gen++
	gen := sess.gen
	sess.timer = time.AfterFunc(m.window, func() {
		m.expire(messageID, gen)
	})
}

// expire removes the session if the render the timer was armed for is still
// the current one. A stale or already-removed session makes this a no-op.
func (m *Manager) expire(messageID string, gen int) {
	m.mu.Lock()
	sess, ok := m.sessions[messageID]
	if !ok || sess.gen != gen {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, messageID)
	m.mu.Unlock()

	observability.SessionsActive.Dec()
	observability.SessionsExpired.Inc()
	m.presenter.Remove(context.Background(), messageID)
}

func renderOutcome(err error) domain.Outcome {
	if err == nil {
		return domain.Applied()
	}
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Rejected(err)
	}
	return domain.Aborted(err)
}
