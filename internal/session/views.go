package session

import (
	"context"
	"sort"
	"time"

	"github.com/riverbank-network/riverbank/internal/domain"
)

// ─── View Kinds ─────────────────────────────────────────────────────────────

// ViewKind identifies one interactive view.
type ViewKind string

const (
	ViewBalance   ViewKind = "bal"
	ViewHistory   ViewKind = "history"
	ViewPerAdmin  ViewKind = "per_admin"
	ViewSummary   ViewKind = "infobank"
	ViewDataList  ViewKind = "data_list"
	ViewAdminList ViewKind = "admin_list"
)

// dataListCap bounds the account list view.
const dataListCap = 1000

// View is the recomputed content of one interactive view. Formatting and
// markup are the transport's concern; the core hands over structured state.
type View struct {
	Kind ViewKind

	// Balance, History, PerAdmin
	Account      *domain.Account
	Transactions []domain.Transaction
	Net          map[string]float64

	// Summary, DataList, AdminList
	TotalAccounts int
	TotalValue    float64
	Accounts      []domain.Account
	Admins        []string
}

// Presenter is the rendering transport collaborator. Show creates or edits
// the interactive message; Remove deletes it.
type Presenter interface {
	Show(ctx context.Context, messageID string, v View)
	Remove(ctx context.Context, messageID string)
}

// ─── Render Functions ───────────────────────────────────────────────────────
// Every render recomputes from the live stores at transition time, so ledger
// mutations applied since the last render are reflected on next navigation.

func (m *Manager) render(ctx context.Context, kind ViewKind, targetID int64) (View, error) {
	switch kind {
	case ViewBalance:
		return m.renderBalance(ctx, targetID)
	case ViewHistory:
		return m.renderHistory(ctx, targetID)
	case ViewPerAdmin:
		return m.renderPerAdmin(ctx, targetID)
	case ViewSummary:
		return m.renderSummary(ctx)
	case ViewDataList:
		return m.renderDataList(ctx)
	case ViewAdminList:
		return m.renderAdminList(), nil
	default:
		return View{}, domain.ErrMalformedRouting
	}
}

func (m *Manager) renderBalance(ctx context.Context, targetID int64) (View, error) {
	acc, err := m.store.Get(ctx, targetID)
	if err != nil {
		return View{}, err
	}
	return View{Kind: ViewBalance, Account: acc}, nil
}

func (m *Manager) renderHistory(ctx context.Context, targetID int64) (View, error) {
	acc, err := m.store.Get(ctx, targetID)
	if err != nil {
		return View{}, err
	}
	return View{
		Kind:         ViewHistory,
		Account:      acc,
		Transactions: m.history.Recent(targetID),
	}, nil
}

func (m *Manager) renderPerAdmin(ctx context.Context, targetID int64) (View, error) {
	acc, err := m.store.Get(ctx, targetID)
	if err != nil {
		return View{}, err
	}
	return View{
		Kind:    ViewPerAdmin,
		Account: acc,
		Net:     m.history.PerExecutorNet(targetID),
	}, nil
}

func (m *Manager) renderSummary(ctx context.Context) (View, error) {
	accounts, err := m.store.ListAll(ctx)
	if err != nil {
		return View{}, err
	}
	var total float64
	for _, acc := range accounts {
		total += acc.Balance
	}
	return View{
		Kind:          ViewSummary,
		TotalAccounts: len(accounts),
		TotalValue:    total,
	}, nil
}

func (m *Manager) renderDataList(ctx context.Context) (View, error) {
	accounts, err := m.store.ListAll(ctx)
	if err != nil {
		return View{}, err
	}
	// Newest first by creation time, bounded. Chat ids carry no creation
	// order; ties fall back to id for a stable listing.
	sort.SliceStable(accounts, func(i, j int) bool {
		ti, _ := time.Parse(domain.TimestampLayout, accounts[i].CreatedAt)
		tj, _ := time.Parse(domain.TimestampLayout, accounts[j].CreatedAt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return accounts[i].ID > accounts[j].ID
	})
	if len(accounts) > dataListCap {
		accounts = accounts[:dataListCap]
	}
	return View{Kind: ViewDataList, Accounts: accounts}, nil
}

func (m *Manager) renderAdminList() View {
	return View{Kind: ViewAdminList, Admins: m.auth.Managers()}
}
