package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/orangehats/orangehats/internal/auth"
	"github.com/orangehats/orangehats/internal/content"
	"github.com/orangehats/orangehats/internal/query"
	"github.com/orangehats/orangehats/internal/service"
	"github.com/orangehats/orangehats/internal/storage"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// URLResponse carries a signed URL, plus its object key for uploads
type URLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Key     string `json:"key,omitempty"`
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}

// sendServiceError maps an error from the service layer to a response
func (s *Server) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	var serr *storage.Error
	var cerr *content.Error

	switch {
	case errors.As(err, &verr):
		s.sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid input", Fields: verr.Fields})
	case errors.Is(err, service.ErrInvalidInput):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrNoSession):
		s.sendError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, content.ErrNotFound):
		s.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, auth.ErrUserExists):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.As(err, &serr):
		s.logger.Error("storage failure", "op", serr.Op, "key", serr.Key, "error", err, "request_id", middleware.GetReqID(r.Context()))
		s.sendError(w, http.StatusBadGateway, "storage error")
	case errors.As(err, &cerr):
		s.logger.Error("content failure", "op", cerr.Op, "path", cerr.Path, "error", err, "request_id", middleware.GetReqID(r.Context()))
		s.sendError(w, http.StatusBadGateway, "content store error")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err, "request_id", middleware.GetReqID(r.Context()))
		s.sendError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a bounded JSON body into v, answering 400 on failure
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// listRequest reads the pagination query parameters
func (s *Server) listRequest(w http.ResponseWriter, r *http.Request) (query.Request, bool) {
	q := r.URL.Query()
	req := query.Request{
		Search:        q.Get("search"),
		SortField:     q.Get("sortField"),
		SortDirection: query.Direction(q.Get("sortDirection")),
	}

	for name, dst := range map[string]*int{"page": &req.Page, "limit": &req.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.sendError(w, http.StatusBadRequest, name+" must be a positive integer")
			return req, false
		}
		*dst = n
	}
	return req, true
}
