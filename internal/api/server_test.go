package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/riverbank-network/riverbank/internal/bank"
	"github.com/riverbank-network/riverbank/internal/domain"
	"github.com/riverbank-network/riverbank/internal/ledger"
	"github.com/riverbank-network/riverbank/internal/roles"
	"github.com/riverbank-network/riverbank/internal/session"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type memStore struct {
	mu   sync.Mutex
	rows map[int64]domain.Account
	down bool
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]domain.Account)}
}

func (s *memStore) fault() error {
	return fmt.Errorf("%w: backend offline", domain.ErrStoreUnavailable)
}

func (s *memStore) Get(_ context.Context, id int64) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, s.fault()
	}
	acc, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &acc, nil
}

func (s *memStore) Create(_ context.Context, acc domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return s.fault()
	}
	if _, ok := s.rows[acc.ID]; ok {
		return domain.ErrAccountExists
	}
	s.rows[acc.ID] = acc
	return nil
}

func (s *memStore) UpdateBalance(_ context.Context, id int64, balance float64, timestamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return s.fault()
	}
	acc, ok := s.rows[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.Balance = balance
	acc.LastTransaction = timestamp
	s.rows[id] = acc
	return nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return s.fault()
	}
	if _, ok := s.rows[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) ListAll(_ context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, s.fault()
	}
	out := make([]domain.Account, 0, len(s.rows))
	for _, acc := range s.rows {
		out = append(out, acc)
	}
	return out, nil
}

type memRoles struct{ state domain.RoleState }

func (s *memRoles) Load() (domain.RoleState, error) { return s.state, nil }
func (s *memRoles) Save(domain.RoleState) error     { return nil }

type memSink struct{}

func (memSink) Emit(context.Context, domain.AuditEvent) {}

type memAudit struct{ events []domain.AuditEvent }

func (a *memAudit) Recent(_ context.Context, limit int) ([]domain.AuditEvent, error) {
	if limit > len(a.events) {
		limit = len(a.events)
	}
	return a.events[:limit], nil
}

type noopPresenter struct{}

func (noopPresenter) Show(context.Context, string, session.View) {}
func (noopPresenter) Remove(context.Context, string)             {}

// ─── Fixture ────────────────────────────────────────────────────────────────

const ownerID = int64(1768830793)

var (
	manager = domain.Actor{ID: 100, Name: "Alice", Handle: "alice"}
	member  = domain.Actor{ID: 200, Name: "Bob", Handle: "bob"}
	plain   = domain.Actor{ID: 300, Name: "Carol", Handle: "carol"}
)

type fixture struct {
	store  *memStore
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	auth := roles.New(ownerID, &memRoles{state: domain.RoleState{Managers: []string{"alice"}}})
	history := ledger.NewHistory()
	proc := bank.NewProcessor(auth, store, history, memSink{})
	sessions := session.NewManager(store, history, auth, noopPresenter{}, time.Minute)
	audit := &memAudit{events: []domain.AuditEvent{
		{ID: "ev-1", Kind: "funds_added", Text: "Alice added 100 to Bob", Timestamp: time.Now()},
	}}

	srv := NewServer(proc, sessions, store, auth, audit)
	srv.EnableMetrics()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{store: store, server: ts}
}

func (f *fixture) post(t *testing.T, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, decoded
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, decoded
}

func command(op string, actor, target domain.Actor) map[string]interface{} {
	return map[string]interface{}{"op": op, "actor": actor, "target": target}
}

// ─── Commands ───────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestCommandCreateAndCredit(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/v1/commands", command("new", manager, member))
	if resp.StatusCode != http.StatusOK || body["status"] != "applied" {
		t.Fatalf("new: %d %v", resp.StatusCode, body)
	}

	req := command("add", manager, member)
	req["amount"] = "100"
	resp, body = f.post(t, "/v1/commands", req)
	if resp.StatusCode != http.StatusOK || body["status"] != "applied" {
		t.Fatalf("add: %d %v", resp.StatusCode, body)
	}

	resp, account := f.get(t, "/v1/accounts/200")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get account: %d", resp.StatusCode)
	}
	if account["balance"] != float64(100) {
		t.Fatalf("balance = %v, want 100", account["balance"])
	}
}

func TestCommandRejectionIsReported(t *testing.T) {
	f := newFixture(t)

	req := command("add", plain, member)
	req["amount"] = "100"
	resp, body := f.post(t, "/v1/commands", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "rejected" {
		t.Fatalf("body = %v, want rejected", body)
	}
}

func TestCommandDuplicateCreateCarriesNotice(t *testing.T) {
	f := newFixture(t)

	f.post(t, "/v1/commands", command("new", manager, member))
	_, body := f.post(t, "/v1/commands", command("new", manager, member))
	if body["status"] != "rejected" || body["notice"] == nil {
		t.Fatalf("body = %v, want rejected with notice", body)
	}
}

func TestCommandStoreFaultIs503(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/v1/commands", command("new", manager, member))
	f.store.down = true

	req := command("add", manager, member)
	req["amount"] = "10"
	resp, body := f.post(t, "/v1/commands", req)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if body["status"] != "aborted" {
		t.Fatalf("body = %v, want aborted", body)
	}
}

func TestCommandUnknownOp(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, "/v1/commands", command("explode", manager, member))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCommandInvalidJSON(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.server.URL+"/v1/commands", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func TestSessionOpenAndNavigate(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/v1/commands", command("new", manager, member))

	resp, body := f.post(t, "/v1/sessions", map[string]interface{}{
		"view": "bal", "actor": manager, "target": member,
	})
	if resp.StatusCode != http.StatusOK || body["status"] != "applied" {
		t.Fatalf("open: %d %v", resp.StatusCode, body)
	}
	messageID, _ := body["message_id"].(string)
	if messageID == "" {
		t.Fatal("no message_id in response")
	}

	_, body = f.post(t, "/v1/sessions/"+messageID+"/actions", map[string]interface{}{
		"actor": manager, "key": fmt.Sprintf("history_%d_%d", member.ID, manager.ID),
	})
	if body["status"] != "applied" {
		t.Fatalf("action: %v", body)
	}

	// A click from anyone but the opener is acknowledged and ignored.
	_, body = f.post(t, "/v1/sessions/"+messageID+"/actions", map[string]interface{}{
		"actor": plain, "key": fmt.Sprintf("per_admin_%d_%d", member.ID, manager.ID),
	})
	if body["status"] != "rejected" {
		t.Fatalf("foreign action: %v", body)
	}
}

func TestSessionUnknownView(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, "/v1/sessions", map[string]interface{}{
		"view": "dashboard", "actor": manager,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// ─── Inspection ─────────────────────────────────────────────────────────────

func TestListAccounts(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/v1/commands", command("new", manager, member))
	f.post(t, "/v1/commands", command("new", manager, plain))

	resp, body := f.get(t, "/v1/accounts")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["count"] != float64(2) {
		t.Fatalf("count = %v, want 2", body["count"])
	}
}

func TestGetAccountNotFound(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, "/v1/accounts/999")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRolesSnapshot(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/v1/roles")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	managers, _ := body["managers"].([]interface{})
	if len(managers) != 1 || managers[0] != "alice" {
		t.Fatalf("managers = %v", body["managers"])
	}
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/v1/audit?limit=10")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["count"] != float64(1) {
		t.Fatalf("count = %v, want 1", body["count"])
	}
}

func TestAuditInvalidLimit(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, "/v1/audit?limit=zero")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
