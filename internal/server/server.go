// Package server exposes the directory over a JSON HTTP API.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/orangehats/orangehats/internal/auth"
	"github.com/orangehats/orangehats/internal/config"
	"github.com/orangehats/orangehats/internal/ipfilter"
	"github.com/orangehats/orangehats/internal/metrics"
	"github.com/orangehats/orangehats/internal/ratelimit"
	"github.com/orangehats/orangehats/internal/service"
)

// Options carries the server's collaborators. OIDC, Limiter and TLS may be nil.
type Options struct {
	Config       *config.Config
	TLS          *tls.Config
	Audits       *service.AuditService
	Auditors     *service.AuditorService
	Tools        *service.ToolService
	Research     *service.ResearchService
	Applications *service.ApplicationService
	Auth         *auth.Manager
	OIDC         *auth.OIDCProvider
	Limiter      *ratelimit.Limiter
	Version      string
	Logger       *slog.Logger
}

type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        *config.Config

	audits       *service.AuditService
	auditors     *service.AuditorService
	tools        *service.ToolService
	research     *service.ResearchService
	applications *service.ApplicationService
	auth         *auth.Manager
	oidc         *auth.OIDCProvider
	limiter      *ratelimit.Limiter
	adminFilter  *ipfilter.Filter

	version   string
	logger    *slog.Logger
	startTime time.Time
}

func New(opts Options) (*Server, error) {
	logger := opts.Logger.With("component", "http")

	filter, err := ipfilter.New(opts.Config.Server.AdminAllowedIPs, logger)
	if err != nil {
		return nil, fmt.Errorf("admin_allowed_ips: %w", err)
	}

	s := &Server{
		router:       chi.NewRouter(),
		cfg:          opts.Config,
		audits:       opts.Audits,
		auditors:     opts.Auditors,
		tools:        opts.Tools,
		research:     opts.Research,
		applications: opts.Applications,
		auth:         opts.Auth,
		oidc:         opts.OIDC,
		limiter:      opts.Limiter,
		adminFilter:  filter,
		version:      opts.Version,
		logger:       logger,
		startTime:    time.Now(),
	}

	s.setupRoutes()

	sc := opts.Config.Server
	s.httpServer = &http.Server{
		Addr:         sc.ListenAddr,
		Handler:      s.router,
		TLSConfig:    opts.TLS,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.HTTPMiddleware)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/public", func(r chi.Router) {
		r.Get("/audits", s.handleListAudits)
		r.Get("/audits/{id}", s.handleGetAudit)
		r.Get("/audits/{id}/pdf-url", s.handleAuditPdfURL)
		r.Get("/auditors", s.handleListAuditors)
		r.Get("/auditors/{id}", s.handleGetAuditor)
		r.Get("/research", s.handleListResearch)
		r.Get("/research/{slug}", s.handleGetResearch)
		r.Get("/research/{id}/images/{which}", s.handleResearchImageURL)
		r.Get("/tools", s.handleListTools)
		r.Get("/tools/{id}/image-url", s.handleToolImageURL)
		r.Get("/posts", s.handlePosts)
	})

	s.router.Route("/api/applications", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)

		r.Post("/auditor", s.handleSubmitAuditor)
		r.Post("/audit", s.handleSubmitAudit)
		r.Post("/grant", s.handleSubmitGrant)
	})

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.sessionMiddleware).Get("/me", s.handleMe)
		r.Get("/oidc/login", s.handleOIDCLogin)
		r.Get("/oidc/callback", s.handleOIDCCallback)
	})

	s.router.Route("/api/admin", func(r chi.Router) {
		r.Use(s.adminFilter.Middleware)
		r.Use(s.sessionMiddleware)

		r.Post("/audits", s.handleCreateAudit)
		r.Put("/audits/{id}", s.handleUpdateAudit)
		r.Delete("/audits/{id}", s.handleDeleteAudit)
		r.Put("/audits/{id}/pdf", s.handleSetAuditPdf)

		r.Post("/auditors", s.handleCreateAuditor)
		r.Put("/auditors/{id}", s.handleUpdateAuditor)
		r.Delete("/auditors/{id}", s.handleDeleteAuditor)

		r.Post("/tools", s.handleCreateTool)
		r.Put("/tools/{id}", s.handleUpdateTool)
		r.Delete("/tools/{id}", s.handleDeleteTool)

		r.Get("/research/{id}", s.handleGetResearchRecord)
		r.Post("/research", s.handleCreateResearch)
		r.Put("/research/{id}", s.handleUpdateResearch)
		r.Delete("/research/{id}", s.handleDeleteResearch)

		r.Post("/uploads/pdf", s.handleUploadPdf)
		r.Post("/uploads/research-image", s.handleUploadResearchImage)
		r.Post("/uploads/tool-image", s.handleUploadToolImage)

		r.Get("/applications/{kind}", s.handleListApplications)
		r.Put("/applications/{kind}/{id}/status", s.handleUpdateApplicationStatus)

		r.Post("/content/rebuild", s.handleRebuildContent)
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	useTLS := s.httpServer.TLSConfig != nil
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr, "tls", useTLS)

	var err error
	if useTLS {
		// certificates come from TLSConfig
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}
