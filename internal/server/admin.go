package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orangehats/orangehats/internal/auth"
	"github.com/orangehats/orangehats/internal/service"
)

// actor names the admin behind r for audit logging
func actor(r *http.Request) string {
	if id, ok := auth.FromContext(r.Context()); ok {
		return id.User.Username
	}
	return ""
}

func (s *Server) sendDeleted(w http.ResponseWriter, r *http.Request, what, id string) {
	s.logger.Info(what+" deleted", "id", id, "by", actor(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateAudit handles POST /api/admin/audits
func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	var in service.AuditInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	a, err := s.audits.Create(r.Context(), in)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.logger.Info("audit created", "id", a.ID, "protocol", a.Protocol, "by", actor(r))
	s.sendJSON(w, http.StatusCreated, a)
}

// handleUpdateAudit handles PUT /api/admin/audits/{id}
func (s *Server) handleUpdateAudit(w http.ResponseWriter, r *http.Request) {
	var p service.AuditPatch
	if !s.decodeJSON(w, r, &p) {
		return
	}
	a, err := s.audits.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, a)
}

// handleDeleteAudit handles DELETE /api/admin/audits/{id}
func (s *Server) handleDeleteAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.audits.Delete(r.Context(), id); err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendDeleted(w, r, "audit", id)
}

// handleSetAuditPdf handles PUT /api/admin/audits/{id}/pdf
func (s *Server) handleSetAuditPdf(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PdfKey string `json:"pdfKey"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	a, err := s.audits.SetPdf(r.Context(), chi.URLParam(r, "id"), req.PdfKey)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, a)
}

// handleCreateAuditor handles POST /api/admin/auditors
func (s *Server) handleCreateAuditor(w http.ResponseWriter, r *http.Request) {
	var in service.AuditorInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	a, err := s.auditors.Create(r.Context(), in)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.logger.Info("auditor created", "id", a.ID, "by", actor(r))
	s.sendJSON(w, http.StatusCreated, a)
}

// handleUpdateAuditor handles PUT /api/admin/auditors/{id}
func (s *Server) handleUpdateAuditor(w http.ResponseWriter, r *http.Request) {
	var p service.AuditorPatch
	if !s.decodeJSON(w, r, &p) {
		return
	}
	a, err := s.auditors.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, a)
}

// handleDeleteAuditor handles DELETE /api/admin/auditors/{id}
func (s *Server) handleDeleteAuditor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.auditors.Delete(r.Context(), id); err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendDeleted(w, r, "auditor", id)
}

// handleCreateTool handles POST /api/admin/tools
func (s *Server) handleCreateTool(w http.ResponseWriter, r *http.Request) {
	var in service.ToolInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	t, err := s.tools.Create(r.Context(), in)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.logger.Info("tool created", "id", t.ID, "by", actor(r))
	s.sendJSON(w, http.StatusCreated, t)
}

// handleUpdateTool handles PUT /api/admin/tools/{id}
func (s *Server) handleUpdateTool(w http.ResponseWriter, r *http.Request) {
	var p service.ToolPatch
	if !s.decodeJSON(w, r, &p) {
		return
	}
	t, err := s.tools.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, t)
}

// handleDeleteTool handles DELETE /api/admin/tools/{id}
func (s *Server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.tools.Delete(r.Context(), id); err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendDeleted(w, r, "tool", id)
}

// handleGetResearchRecord handles GET /api/admin/research/{id}
func (s *Server) handleGetResearchRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.research.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, rec)
}

// handleCreateResearch handles POST /api/admin/research
func (s *Server) handleCreateResearch(w http.ResponseWriter, r *http.Request) {
	var in service.ResearchInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	rec, err := s.research.Create(r.Context(), in)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.logger.Info("research created", "id", rec.ID, "slug", rec.Slug, "by", actor(r))
	s.sendJSON(w, http.StatusCreated, rec)
}

// handleUpdateResearch handles PUT /api/admin/research/{id}
func (s *Server) handleUpdateResearch(w http.ResponseWriter, r *http.Request) {
	var p service.ResearchPatch
	if !s.decodeJSON(w, r, &p) {
		return
	}
	rec, err := s.research.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, rec)
}

// handleDeleteResearch handles DELETE /api/admin/research/{id}
func (s *Server) handleDeleteResearch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.research.Delete(r.Context(), id); err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendDeleted(w, r, "research", id)
}

// handleUploadPdf handles POST /api/admin/uploads/pdf
func (s *Server) handleUploadPdf(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AuditID  string `json:"auditId"`
		FileName string `json:"fileName"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	u, err := s.audits.UploadPdf(r.Context(), req.AuditID, req.FileName)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, URLResponse{Success: true, URL: u.URL, Key: u.Key})
}

// handleUploadResearchImage handles POST /api/admin/uploads/research-image
func (s *Server) handleUploadResearchImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResearchID string `json:"researchId"`
		FileName   string `json:"fileName"`
		ImageType  string `json:"imageType"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	u, err := s.research.UploadImage(r.Context(), req.ResearchID, req.FileName, req.ImageType)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, URLResponse{Success: true, URL: u.URL, Key: u.Key})
}

// handleUploadToolImage handles POST /api/admin/uploads/tool-image
func (s *Server) handleUploadToolImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ToolID   string `json:"toolId"`
		FileName string `json:"fileName"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	u, err := s.tools.UploadImage(r.Context(), req.ToolID, req.FileName)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, URLResponse{Success: true, URL: u.URL, Key: u.Key})
}

// handleRebuildContent handles POST /api/admin/content/rebuild
func (s *Server) handleRebuildContent(w http.ResponseWriter, r *http.Request) {
	n, err := s.research.RebuildMirrors(r.Context())
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.logger.Info("mirrors rebuilt", "count", n, "by", actor(r))
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true, "rebuilt": n})
}
