// Package roles implements the role authority: owner, co-owner and manager
// membership with permission predicates.
//
// The co-owner and manager sets are never represented separately. Each
// privileged handle maps to exactly one RoleClass, so the disjointness
// invariant holds by construction: a promotion is a single map write that
// atomically removes the handle from the other class.
package roles

import (
	"log"
	"sort"
	"sync"

	"github.com/riverbank-network/riverbank/internal/domain"
)

// Authority tracks role membership and answers permission questions.
// Mutations are persisted through the RoleStore immediately after the
// in-memory update; a persistence failure is logged, not rolled back.
type Authority struct {
	mu      sync.RWMutex
	ownerID int64
	class   map[string]domain.RoleClass // handle → RoleCoOwner | RoleManager
	logChan int64
	groups  []int64
	store   domain.RoleStore // nil disables persistence
}

// New creates an Authority for the given owner id, reloading persisted
// co-owners, managers, log channel and connected groups from the store.
// A load failure starts the authority empty rather than failing the process.
func New(ownerID int64, store domain.RoleStore) *Authority {
	a := &Authority{
		ownerID: ownerID,
		class:   make(map[string]domain.RoleClass),
		store:   store,
	}
	if store == nil {
		return a
	}
	state, err := store.Load()
	if err != nil {
		log.Printf("[roles] load persisted roles: %v (starting empty)", err)
		return a
	}
	for _, h := range state.Managers {
		a.class[h] = domain.RoleManager
	}
	// Co-owners win if a stale store holds a handle in both lists.
	for _, h := range state.CoOwners {
		a.class[h] = domain.RoleCoOwner
	}
	a.logChan = state.LogChannel
	a.groups = append(a.groups, state.ConnectedGroups...)
	return a
}

// ─── Predicates ─────────────────────────────────────────────────────────────

// IsOwner reports whether the actor is the singular owner.
func (a *Authority) IsOwner(actor domain.Actor) bool {
	return actor.ID == a.ownerID
}

// IsCoOwner reports whether the actor's handle is in the co-owner set.
func (a *Authority) IsCoOwner(actor domain.Actor) bool {
	return a.classOf(actor.Handle) == domain.RoleCoOwner
}

// IsManager reports whether the actor's handle is in the manager set.
func (a *Authority) IsManager(actor domain.Actor) bool {
	return a.classOf(actor.Handle) == domain.RoleManager
}

// CanMutateLedger reports whether the actor may create, credit, debit or
// reset accounts: owner, co-owner or manager.
func (a *Authority) CanMutateLedger(actor domain.Actor) bool {
	return a.IsOwner(actor) || a.IsCoOwner(actor) || a.IsManager(actor)
}

// CanManageRoles reports whether the actor may promote, demote and change
// bank configuration: owner or co-owner only.
func (a *Authority) CanManageRoles(actor domain.Actor) bool {
	return a.IsOwner(actor) || a.IsCoOwner(actor)
}

// ClassOf returns the role class of a handle.
func (a *Authority) ClassOf(handle string) domain.RoleClass {
	return a.classOf(handle)
}

func (a *Authority) classOf(handle string) domain.RoleClass {
	if handle == "" {
		return domain.RoleNone
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.class[handle]
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// PromoteCoOwner assigns the handle the co-owner class, removing it from the
// manager set in the same step. Already being a co-owner is rejected.
func (a *Authority) PromoteCoOwner(handle string) error {
	return a.assign(handle, domain.RoleCoOwner)
}

// PromoteManager assigns the handle the manager class, removing it from the
// co-owner set in the same step. Already being a manager is rejected.
func (a *Authority) PromoteManager(handle string) error {
	return a.assign(handle, domain.RoleManager)
}

func (a *Authority) assign(handle string, class domain.RoleClass) error {
	if handle == "" {
		return domain.ErrMissingTarget
	}
	a.mu.Lock()
	if a.class[handle] == class {
		a.mu.Unlock()
		return domain.ErrAlreadyAssigned
	}
	a.class[handle] = class
	a.mu.Unlock()
	a.persist()
	return nil
}

// Demote strips the handle of any privileged class. A handle that holds
// neither class is rejected.
func (a *Authority) Demote(handle string) error {
	a.mu.Lock()
	if a.class[handle] == domain.RoleNone {
		a.mu.Unlock()
		return domain.ErrNotPrivileged
	}
	delete(a.class, handle)
	a.mu.Unlock()
	a.persist()
	return nil
}

// SetLogChannel points audit delivery at the given channel id.
func (a *Authority) SetLogChannel(id int64) {
	a.mu.Lock()
	a.logChan = id
	a.mu.Unlock()
	a.persist()
}

// LogChannel returns the configured log channel id, 0 when unset.
func (a *Authority) LogChannel() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.logChan
}

// ConnectGroup adds a chat group to the shared-bank set.
func (a *Authority) ConnectGroup(id int64) error {
	a.mu.Lock()
	for _, g := range a.groups {
		if g == id {
			a.mu.Unlock()
			return domain.ErrGroupConnected
		}
	}
	a.groups = append(a.groups, id)
	a.mu.Unlock()
	a.persist()
	return nil
}

// ─── Views ──────────────────────────────────────────────────────────────────

// CoOwners returns the co-owner handles in alphabetical order.
func (a *Authority) CoOwners() []string { return a.handles(domain.RoleCoOwner) }

// Managers returns the manager handles in alphabetical order.
func (a *Authority) Managers() []string { return a.handles(domain.RoleManager) }

func (a *Authority) handles(class domain.RoleClass) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []string
	for h, c := range a.class {
		if c == class {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns the persistable role state.
func (a *Authority) Snapshot() domain.RoleState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked()
}

func (a *Authority) snapshotLocked() domain.RoleState {
	state := domain.RoleState{LogChannel: a.logChan}
	state.ConnectedGroups = append(state.ConnectedGroups, a.groups...)
	for h, c := range a.class {
		switch c {
		case domain.RoleCoOwner:
			state.CoOwners = append(state.CoOwners, h)
		case domain.RoleManager:
			state.Managers = append(state.Managers, h)
		}
	}
	sort.Strings(state.CoOwners)
	sort.Strings(state.Managers)
	return state
}

func (a *Authority) persist() {
	if a.store == nil {
		return
	}
	a.mu.RLock()
	state := a.snapshotLocked()
	a.mu.RUnlock()
	if err := a.store.Save(state); err != nil {
		log.Printf("[roles] persist roles: %v", err)
	}
}
