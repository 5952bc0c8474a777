package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", common.ErrValidation, err)
	}
	return nil
}

func (s *Server) createPatient(w http.ResponseWriter, r *http.Request) {
	var p models.Patient
	if err := decodeBody(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.svc.EnqueueParentCreate(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, localIDResp{LocalID: id})
}

func (s *Server) createScreening(w http.ResponseWriter, r *http.Request) {
	var sc models.Screening
	if err := decodeBody(w, r, &sc); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.svc.EnqueueDependentCreate(r.Context(), chi.URLParam(r, "localID"), sc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, localIDResp{LocalID: id})
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListPatients(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*models.Record{}
	}
	s.writeJSON(w, r, http.StatusOK, recs)
}

func (s *Server) listScreenings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListScreenings(r.Context(), chi.URLParam(r, "localID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*models.DependentRecord{}
	}
	s.writeJSON(w, r, http.StatusOK, recs)
}

func (s *Server) syncNow(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.TriggerSyncNow(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, statusResp{
		Snapshot:   s.svc.CurrentStatus(),
		LastResult: s.svc.LastResult(),
	})
}

func (s *Server) acknowledge(w http.ResponseWriter, r *http.Request) {
	s.svc.AcknowledgeFailures()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.LocalStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, stats)
}

func (s *Server) pendingCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.GetPendingCount(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, pendingCountResp{PendingCount: n})
}

func (s *Server) listFailed(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.ListFailed(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*models.QueueEntry{}
	}
	s.writeJSON(w, r, http.StatusOK, entries)
}

func (s *Server) retryFailed(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RetryFailed(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
