// Package ops exposes the engine's operational surface: health, worker
// stats, and inbound reply ingestion.
package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/lifecycle"
	"github.com/ignite/outreach-engine/internal/textgen"
)

// StatsSource is any component that reports atomic counters.
type StatsSource interface {
	Stats() map[string]int64
}

// ReplyIngester handles an inbound reply for a lead.
type ReplyIngester interface {
	ProcessReply(ctx context.Context, leadID, text string) (textgen.Classification, error)
}

// LeadAdmin is the slice of the lead store the manual-override endpoint
// needs.
type LeadAdmin interface {
	GetLead(ctx context.Context, id string) (*domain.Lead, error)
	UpdateLeadStatus(ctx context.Context, leadID string, from, to domain.LeadStatus, override bool) (bool, error)
	SetManualOverride(ctx context.Context, leadID string, frozen bool) error
	RecordChange(ctx context.Context, change domain.LeadChange) error
}

// Server is the worker process's HTTP listener.
type Server struct {
	addr    string
	db      *sql.DB
	sources map[string]StatsSource
	replies ReplyIngester
	leads   LeadAdmin
	started time.Time

	srv *http.Server
}

func NewServer(addr string) *Server {
	return &Server{
		addr:    addr,
		sources: make(map[string]StatsSource),
		started: time.Now().UTC(),
	}
}

// SetDB enables the database ping in the health check.
func (s *Server) SetDB(db *sql.DB) { s.db = db }

// SetReplyIngester enables the inbound reply endpoint.
func (s *Server) SetReplyIngester(r ReplyIngester) { s.replies = r }

// SetLeadAdmin enables the manual-override endpoint.
func (s *Server) SetLeadAdmin(a LeadAdmin) { s.leads = a }

// Register adds a component's counters to /stats under the given name.
func (s *Server) Register(name string, src StatsSource) {
	s.sources[name] = src
}

// Router builds the route table. Split out from Start so tests can
// exercise handlers without a listener.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/events/reply", s.handleReply)
	r.Put("/leads/{leadID}/status", s.handleOverride)
	return r
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[Ops] listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Ops] server error: %v", err)
		}
	}()
}

// Stop shuts down the listener, draining in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			status = "degraded"
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]map[string]int64, len(s.sources))
	for name, src := range s.sources {
		out[name] = src.Stats()
	}
	respondJSON(w, http.StatusOK, out)
}

type replyRequest struct {
	LeadID string `json:"lead_id"`
	Text   string `json:"text"`
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	if s.replies == nil {
		respondJSON(w, http.StatusNotImplemented, map[string]string{"error": "reply ingestion not configured"})
		return
	}

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LeadID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "lead_id and text are required"})
		return
	}

	c, err := s.replies.ProcessReply(r.Context(), req.LeadID, req.Text)
	if err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	respondJSON(w, http.StatusAccepted, c)
}

type overrideRequest struct {
	Status string `json:"status"`
	Freeze bool   `json:"freeze"`
}

// handleOverride applies an operator's manual-override transition. It is the
// only escape hatch from terminal statuses; the target must be one of the
// resettable states. Freeze additionally blocks future auto-reclassification.
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	if s.leads == nil {
		respondJSON(w, http.StatusNotImplemented, map[string]string{"error": "lead admin not configured"})
		return
	}

	leadID := chi.URLParam(r, "leadID")
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	to := domain.LeadStatus(req.Status)
	if !lifecycle.CanOverride(to) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "status is not a valid override target"})
		return
	}

	lead, err := s.leads.GetLead(r.Context(), leadID)
	if err != nil {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
		return
	}

	change, ok := lifecycle.Override(leadID, lead.Status, to)
	if !ok {
		respondJSON(w, http.StatusConflict, map[string]string{"error": "override rejected"})
		return
	}

	applied, err := s.leads.UpdateLeadStatus(r.Context(), leadID, change.From, change.To, true)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !applied {
		respondJSON(w, http.StatusConflict, map[string]string{"error": "lead status changed concurrently"})
		return
	}

	if err := s.leads.SetManualOverride(r.Context(), leadID, req.Freeze); err != nil {
		log.Printf("[Ops] setting override flag for lead %s: %v", leadID, err)
	}
	if err := s.leads.RecordChange(r.Context(), *change); err != nil {
		log.Printf("[Ops] recording override for lead %s: %v", leadID, err)
	}

	respondJSON(w, http.StatusOK, change)
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Ops] encoding response: %v", err)
	}
}
