// Package web exposes a small read-only operational surface: health,
// tracked-site status, and recent summaries. The full product API lives in
// a separate service; this one exists for operators and smoke tests.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"sitewatch/internal/store"
)

type Server struct {
	store  store.Store
	logger *zap.Logger
	router *mux.Router
	server *http.Server
}

func NewServer(st store.Store, logger *zap.Logger) *Server {
	s := &Server{
		store:  st,
		logger: logger,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/sites", s.handleListSites).Methods("GET")
	s.router.HandleFunc("/api/sites/{id}/status", s.handleSiteStatus).Methods("GET")
	s.router.HandleFunc("/api/sites/{id}/summaries", s.handleSiteSummaries).Methods("GET")
	s.router.HandleFunc("/api/summaries", s.handleListSummaries).Methods("GET")
	s.router.HandleFunc("/api/summaries/{id}", s.handleGetSummary).Methods("GET")
}

// Start launches the HTTP server.
func (s *Server) Start(port string) error {
	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("ops server listening", zap.String("addr", port))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.store.ListSites(r.Context())
	if err != nil {
		s.logger.Error("list sites failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

func (s *Server) handleSiteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid site id", http.StatusBadRequest)
		return
	}

	site, err := s.store.GetSite(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		s.logger.Error("get site failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"is_active":    site.IsActive,
		"last_checked": site.LastChecked,
		"success_rate": site.SuccessRate(),
		"needs_check":  site.Due(time.Now()),
		"statistics":   site.Statistics,
	})
}

func (s *Server) handleSiteSummaries(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid site id", http.StatusBadRequest)
		return
	}

	if _, err := s.store.GetSite(r.Context(), id); errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		s.logger.Error("get site failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	summaries, err := s.store.ListSiteSummaries(r.Context(), id, 50)
	if err != nil {
		s.logger.Error("list site summaries failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListRecentSummaries(r.Context(), 50)
	if err != nil {
		s.logger.Error("list summaries failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid summary id", http.StatusBadRequest)
		return
	}

	summary, err := s.store.GetSummary(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		s.logger.Error("get summary failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}
