// Package api is the local HTTP surface the UI uses: record writes, queue
// inspection, sync triggers and a websocket stream of the sync status.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/reconciler"
	"github.com/dmitrijs2005/healthsync/internal/client/services"
	"github.com/dmitrijs2005/healthsync/internal/client/status"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	svc     services.SyncService
	metrics http.Handler
	logger  logging.Logger
}

// NewServer builds the API over svc. metrics may be nil.
func NewServer(svc services.SyncService, metrics http.Handler, logger logging.Logger) *Server {
	return &Server{svc: svc, metrics: metrics, logger: logger.With("module", "api")}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/patients", func(r chi.Router) {
			r.Get("/", s.listPatients)
			r.Post("/", s.createPatient)
			r.Get("/{localID}/screenings", s.listScreenings)
			r.Post("/{localID}/screenings", s.createScreening)
		})

		r.Post("/sync", s.syncNow)

		r.Get("/status", s.getStatus)
		r.Get("/status/stream", s.streamStatus)
		r.Post("/status/ack", s.acknowledge)

		r.Get("/stats", s.getStats)

		r.Get("/queue/pending-count", s.pendingCount)
		r.Get("/queue/failed", s.listFailed)
		r.Post("/queue/failed/{id}/retry", s.retryFailed)
	})

	return r
}

type errorResp struct {
	Error string `json:"error"`
}

type localIDResp struct {
	LocalID string `json:"local_id"`
}

type statusResp struct {
	status.Snapshot
	LastResult *reconciler.Result `json:"last_result,omitempty"`
}

type pendingCountResp struct {
	PendingCount int `json:"pending_count"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), "failed to encode json response", "error", err)
	}
}

// writeError maps err onto an HTTP status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, reconciler.ErrAlreadyDraining):
		code = http.StatusConflict
	case errors.Is(err, reconciler.ErrOffline):
		code = http.StatusServiceUnavailable
	case errors.Is(err, reconciler.ErrUnauthenticated):
		code = http.StatusUnauthorized
	}
	if code == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, r, code, errorResp{Error: err.Error()})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
