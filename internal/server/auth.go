package server

import (
	"net/http"
	"time"

	"github.com/orangehats/orangehats/internal/auth"
)

const oidcStateCookie = "oidc_state"

type loginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// handleLogin handles POST /api/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	s.setSessionCookie(w, sess)
	s.sendJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Username:  sess.User.Username,
	})
}

// handleLogout handles POST /api/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), s.sessionToken(r)); err != nil {
		s.sendServiceError(w, r, err)
		return
	}
	s.clearCookie(w, s.cfg.Auth.CookieName)
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleMe handles GET /api/auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	s.sendJSON(w, http.StatusOK, id)
}

// handleOIDCLogin redirects to the identity provider
func (s *Server) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		s.sendError(w, http.StatusNotFound, "OIDC is not configured")
		return
	}

	url, state, err := s.oidc.AuthCodeURL()
	if err != nil {
		s.logger.Error("failed to generate auth URL", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to initiate login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oidcStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   s.cfg.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleOIDCCallback completes the provider round trip and issues a session
func (s *Server) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		s.sendError(w, http.StatusNotFound, "OIDC is not configured")
		return
	}

	stateCookie, err := r.Cookie(oidcStateCookie)
	s.clearCookie(w, oidcStateCookie)

	q := r.URL.Query()
	state := q.Get("state")
	if err != nil || state != stateCookie.Value {
		s.sendError(w, http.StatusBadRequest, "Invalid state")
		return
	}

	code := q.Get("code")
	if code == "" {
		desc := q.Get("error_description")
		if desc == "" {
			desc = q.Get("error")
		}
		if desc == "" {
			desc = "Authorization failed"
		}
		s.sendError(w, http.StatusUnauthorized, desc)
		return
	}

	user, err := s.oidc.Exchange(r.Context(), state, code)
	if err != nil {
		s.logger.Warn("OIDC exchange failed", "error", err)
		s.sendError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}

	sess, err := s.auth.LoginExternal(r.Context(), user.Username())
	if err != nil {
		s.sendServiceError(w, r, err)
		return
	}

	s.setSessionCookie(w, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
