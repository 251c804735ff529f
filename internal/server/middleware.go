package server

import (
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/orangehats/orangehats/internal/auth"
	"github.com/orangehats/orangehats/internal/ipfilter"
	"github.com/orangehats/orangehats/internal/ratelimit"
)

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"bytes", ww.BytesWritten(),
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// sessionToken reads the bearer header, falling back to the session cookie
func (s *Server) sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(s.cfg.Auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// sessionMiddleware verifies the session on every request and places the
// identity in the request context
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.auth.Verify(r.Context(), s.sessionToken(r))
		if err != nil {
			s.logger.Warn("unauthorized admin request",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
				"reason", err,
			)
			s.sendServiceError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// rateLimitMiddleware throttles application submissions per client address
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		req := &ratelimit.Request{Kind: path.Base(r.URL.Path)}
		if addr, ok := ipfilter.ClientAddr(r); ok {
			req.IP = addr.String()
		}

		res, err := s.limiter.Allow(r.Context(), req)
		if err != nil {
			s.logger.Error("rate limit check failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !res.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			s.sendError(w, http.StatusTooManyRequests, "Too many applications, try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}
