// Package api provides the HTTP ingress for the bank.
// Chat transports post commands and interaction actions here; operators get
// read-only inspection of accounts, roles and the audit trail.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riverbank-network/riverbank/internal/bank"
	"github.com/riverbank-network/riverbank/internal/domain"
	"github.com/riverbank-network/riverbank/internal/roles"
	"github.com/riverbank-network/riverbank/internal/session"
)

// AuditReader exposes the recorded audit trail for inspection.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]domain.AuditEvent, error)
}

// Server is the bank HTTP server.
type Server struct {
	bank           *bank.Processor
	sessions       *session.Manager
	store          domain.LedgerStore
	auth           *roles.Authority
	audit          AuditReader
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(p *bank.Processor, sm *session.Manager, store domain.LedgerStore, auth *roles.Authority, audit AuditReader) *Server {
	return &Server{bank: p, sessions: sm, store: store, auth: auth, audit: audit}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/commands", s.handleCommand)
		r.Post("/sessions", s.handleOpenSession)
		r.Post("/sessions/{messageID}/actions", s.handleSessionAction)

		r.Get("/accounts", s.handleListAccounts)
		r.Get("/accounts/{id}", s.handleGetAccount)
		r.Get("/roles", s.handleRoles)
		r.Get("/audit", s.handleAudit)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Command Ingress ────────────────────────────────────────────────────────

// commandRequest is one chat command relayed by the transport. Target and the
// positional fields are meaningful per op; unused fields stay zero.
type commandRequest struct {
	Op        string       `json:"op"`
	Actor     domain.Actor `json:"actor"`
	Target    domain.Actor `json:"target"`
	Amount    string       `json:"amount"`
	ChannelID int64        `json:"channel_id"`
	GroupID   int64        `json:"group_id"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	var out domain.Outcome
	switch req.Op {
	case "new":
		out = s.bank.CreateAccount(ctx, req.Actor, req.Target)
	case "add":
		out = s.bank.Credit(ctx, req.Actor, req.Target, req.Amount)
	case "use":
		out = s.bank.Debit(ctx, req.Actor, req.Target, req.Amount)
	case "reset":
		out = s.bank.Reset(ctx, req.Actor, req.Target)
	case "co":
		out = s.bank.PromoteCoOwner(ctx, req.Actor, req.Target)
	case "prom":
		out = s.bank.PromoteManager(ctx, req.Actor, req.Target)
	case "dem":
		out = s.bank.Demote(ctx, req.Actor, req.Target)
	case "setlog":
		out = s.bank.SetLogChannel(ctx, req.Actor, req.ChannelID)
	case "connect":
		out = s.bank.ConnectGroup(ctx, req.Actor, req.GroupID)
	case "departed":
		out = s.bank.DeleteDeparted(ctx, req.Target)
	default:
		writeError(w, http.StatusBadRequest, "unknown op "+strconv.Quote(req.Op))
		return
	}
	writeOutcome(w, out)
}

// ─── Session Ingress ────────────────────────────────────────────────────────

type openSessionRequest struct {
	View   string       `json:"view"` // "bal" or "infobank"
	Actor  domain.Actor `json:"actor"`
	Target domain.Actor `json:"target"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var messageID string
	var out domain.Outcome
	switch session.ViewKind(req.View) {
	case session.ViewBalance:
		messageID, out = s.sessions.OpenBalance(r.Context(), req.Actor, req.Target)
	case session.ViewSummary:
		messageID, out = s.sessions.OpenSummary(r.Context(), req.Actor)
	default:
		writeError(w, http.StatusBadRequest, "unknown view "+strconv.Quote(req.View))
		return
	}

	resp := outcomeBody(out)
	if messageID != "" {
		resp["message_id"] = messageID
	}
	writeJSON(w, outcomeStatusCode(out), resp)
}

type sessionActionRequest struct {
	Actor domain.Actor `json:"actor"`
	Key   string       `json:"key"`
}

func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	var req sessionActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	messageID := chi.URLParam(r, "messageID")
	out := s.sessions.HandleAction(r.Context(), req.Actor, messageID, req.Key)
	writeOutcome(w, out)
}

// ─── Inspection ─────────────────────────────────────────────────────────────

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	acc, err := s.store.Get(r.Context(), id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.auth.Snapshot())
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	events, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// ─── Response Helpers ───────────────────────────────────────────────────────

func outcomeBody(out domain.Outcome) map[string]interface{} {
	body := map[string]interface{}{"status": out.Status.String()}
	if out.Reason != nil {
		body["reason"] = out.Reason.Error()
	}
	if out.Fault != nil {
		body["fault"] = out.Fault.Error()
	}
	if out.Notice != "" {
		body["notice"] = out.Notice
	}
	return body
}

// outcomeStatusCode maps outcomes to HTTP codes. Rejections are 200: the
// command was received and decided, and the chat-side rendering of a
// rejection is silence, not an error page.
func outcomeStatusCode(out domain.Outcome) int {
	if out.Status == domain.StatusAborted {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeOutcome(w http.ResponseWriter, out domain.Outcome) {
	writeJSON(w, outcomeStatusCode(out), outcomeBody(out))
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}
