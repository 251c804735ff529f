package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListAudits handles GET /api/public/audits
func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	req, ok := s.listRequest(w, r)
	if !ok {
		return
	}
	page, err := s.audits.List(r.Context(), req)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	a, err := s.audits.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, a)
}

// handleAuditPdfURL handles GET /api/public/audits/{id}/pdf-url
func (s *Server) handleAuditPdfURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.audits.PdfDownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, URLResponse{Success: true, URL: url})
}

// handleListAuditors handles GET /api/public/auditors
func (s *Server) handleListAuditors(w http.ResponseWriter, r *http.Request) {
	req, ok := s.listRequest(w, r)
	if !ok {
		return
	}
	page, err := s.auditors.List(r.Context(), req)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetAuditor(w http.ResponseWriter, r *http.Request) {
	a, err := s.auditors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, a)
}

// handleListResearch handles GET /api/public/research
func (s *Server) handleListResearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.listRequest(w, r)
	if !ok {
		return
	}
	page, err := s.research.List(r.Context(), req)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, page)
}

// handleGetResearch handles GET /api/public/research/{slug}
func (s *Server) handleGetResearch(w http.ResponseWriter, r *http.Request) {
	post, err := s.research.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, post)
}

// handleResearchImageURL handles GET /api/public/research/{id}/images/{which}
func (s *Server) handleResearchImageURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.research.ImageURL(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "which"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, URLResponse{Success: true, URL: url})
}

// handleListTools handles GET /api/public/tools
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	req, ok := s.listRequest(w, r)
	if !ok {
		return
	}
	page, err := s.tools.List(r.Context(), req)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, page)
}

// handleToolImageURL handles GET /api/public/tools/{id}/image-url
func (s *Server) handleToolImageURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.tools.ImageURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, URLResponse{Success: true, URL: url})
}

// handlePosts handles GET /api/public/posts
func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.research.Posts()
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, posts)
}
