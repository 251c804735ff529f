package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orangehats/orangehats/internal/models"
	"github.com/orangehats/orangehats/internal/service"
)

type submitResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// handleSubmitAuditor handles POST /api/applications/auditor
func (s *Server) handleSubmitAuditor(w http.ResponseWriter, r *http.Request) {
	var in service.AuditorApplicationInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	a, err := s.applications.SubmitAuditor(r.Context(), in)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, submitResponse{Success: true, ID: a.ID})
}

// handleSubmitAudit handles POST /api/applications/audit
func (s *Server) handleSubmitAudit(w http.ResponseWriter, r *http.Request) {
	var in service.AuditApplicationInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	a, err := s.applications.SubmitAudit(r.Context(), in)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, submitResponse{Success: true, ID: a.ID})
}

// handleSubmitGrant handles POST /api/applications/grant
func (s *Server) handleSubmitGrant(w http.ResponseWriter, r *http.Request) {
	var in service.GrantApplicationInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	g, err := s.applications.SubmitGrant(r.Context(), in)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, submitResponse{Success: true, ID: g.ID})
}

// handleListApplications handles GET /api/admin/applications/{kind}
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	kind := models.ApplicationKind(chi.URLParam(r, "kind"))
	status := models.ApplicationStatus(r.URL.Query().Get("status"))

	items, err := s.applications.List(r.Context(), kind, status)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, items)
}

// handleUpdateApplicationStatus handles PUT /api/admin/applications/{kind}/{id}/status
func (s *Server) handleUpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.ApplicationStatus `json:"status"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}

	kind := models.ApplicationKind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")
	if err := s.applications.UpdateStatus(r.Context(), kind, id, req.Status); err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	s.logger.Info("application status changed", "kind", kind, "id", id, "status", req.Status, "by", actor(r))
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true})
}
