// Package app wires the configured components together and runs them.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	bolt "go.etcd.io/bbolt"

	"github.com/orangehats/orangehats/internal/auth"
	"github.com/orangehats/orangehats/internal/config"
	"github.com/orangehats/orangehats/internal/content"
	"github.com/orangehats/orangehats/internal/db"
	"github.com/orangehats/orangehats/internal/ipfilter"
	"github.com/orangehats/orangehats/internal/metrics"
	"github.com/orangehats/orangehats/internal/notify"
	"github.com/orangehats/orangehats/internal/ratelimit"
	"github.com/orangehats/orangehats/internal/repository"
	"github.com/orangehats/orangehats/internal/server"
	"github.com/orangehats/orangehats/internal/service"
	"github.com/orangehats/orangehats/internal/storage"
	orangeTLS "github.com/orangehats/orangehats/internal/tls"
)

// App holds the long-lived components. New builds what every command
// needs; Run adds the listeners.
type App struct {
	config  *config.Config
	version string
	logger  *slog.Logger

	db    *db.DB
	index *content.Index

	audits       *service.AuditService
	auditors     *service.AuditorService
	tools        *service.ToolService
	research     *service.ResearchService
	applications *service.ApplicationService
	auth         *auth.Manager

	rateDB  *bolt.DB
	limiter *ratelimit.Limiter
}

// New opens the database, applies migrations and builds the services
func New(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) (*App, error) {
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage, logger.With("component", "s3"))
	if err != nil {
		database.Close()
		return nil, err
	}
	files := storage.NewResolver(store, cfg.Storage.URLExpiry, logger)

	index, err := content.OpenIndex(cfg.Content.IndexPath)
	if err != nil {
		database.Close()
		return nil, err
	}
	mirror := content.NewSynchronizer(cfg.Content.Dir, index, logger)
	if n, err := mirror.EnsureIndex(); err != nil {
		logger.Warn("failed to index research mirrors", "error", err)
	} else {
		logger.Debug("research mirror index ready", "slugs", n)
	}

	auditorRepo := repository.NewAuditorRepository(database.DB)

	var notifier service.Notifier
	if cfg.Notify.SMTP.Enabled() {
		notifier = notify.NewMailer(cfg.Notify.SMTP, logger)
		logger.Info("application notifications enabled", "to", cfg.Notify.SMTP.To)
	}

	return &App{
		config:       cfg,
		version:      version,
		logger:       logger,
		db:           database,
		index:        index,
		audits:       service.NewAuditService(repository.NewAuditRepository(database.DB), auditorRepo, files, logger),
		auditors:     service.NewAuditorService(auditorRepo, logger),
		tools:        service.NewToolService(repository.NewToolRepository(database.DB), files, logger),
		research:     service.NewResearchService(repository.NewResearchRepository(database.DB), mirror, files, logger),
		applications: service.NewApplicationService(repository.NewApplicationRepository(database.DB), notifier, logger),
		auth: auth.NewManager(
			repository.NewUserRepository(database.DB),
			repository.NewSessionRepository(database.DB),
			cfg.Auth.SessionTTL,
			logger,
		),
	}, nil
}

func (a *App) Research() *service.ResearchService { return a.research }
func (a *App) Auth() *auth.Manager                 { return a.auth }

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting orangehats",
		"version", a.version,
		"addr", a.config.Server.ListenAddr,
		"content_dir", a.config.Content.Dir,
		"bucket", a.config.Storage.Bucket,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	oidcProvider, err := auth.NewOIDCProvider(ctx, &a.config.Auth.OIDC)
	if err != nil {
		return err
	}
	if oidcProvider != nil {
		a.logger.Info("OIDC login enabled", "provider", a.config.Auth.OIDC.ProviderURL)
	}

	tlsConfig, acmeManager, err := orangeTLS.Load(a.config.Server.TLS, a.logger)
	if err != nil {
		return err
	}

	if err := a.startLimiter(); err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:       a.config,
		TLS:          tlsConfig,
		Audits:       a.audits,
		Auditors:     a.auditors,
		Tools:        a.tools,
		Research:     a.research,
		Applications: a.applications,
		Auth:         a.auth,
		OIDC:         oidcProvider,
		Limiter:      a.limiter,
		Version:      a.version,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	var metricsServer *metrics.Server
	if a.config.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)

		filter, err := ipfilter.New(a.config.Metrics.AllowedIPs, a.logger.With("component", "metrics"))
		if err != nil {
			return fmt.Errorf("metrics.allowed_ips: %w", err)
		}
		metricsServer = metrics.NewServer(m, a.config.Metrics.ListenAddr, a.config.Metrics.Path, filter, a.logger.With("component", "metrics"))
	}

	errCh := make(chan error, 2)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var acmeServer *http.Server
	if acmeManager != nil && a.config.Server.TLS.ACME.ChallengeAddr != "" {
		acmeServer = &http.Server{
			Addr:              a.config.Server.TLS.ACME.ChallengeAddr,
			Handler:           acmeManager.HTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			a.logger.Info("starting ACME HTTP challenge server", "addr", acmeServer.Addr)
			if err := acmeServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Warn("ACME HTTP server error", "error", err)
			}
		}()
	}

	go a.sessionJanitor(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("server error", "error", runErr)
		cancel()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
	if acmeServer != nil {
		if err := acmeServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("acme server shutdown error", "error", err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	return runErr
}

func (a *App) startLimiter() error {
	rl := a.config.Applications.RateLimit
	if !rl.Enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(rl.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create rate limit directory: %w", err)
	}
	rateDB, err := bolt.Open(rl.DBPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open rate limit db: %w", err)
	}

	limiter, err := ratelimit.NewLimiter(rateDB, ratelimit.FromConfig(rl), a.logger)
	if err != nil {
		rateDB.Close()
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	a.rateDB = rateDB
	a.limiter = limiter
	a.logger.Info("application rate limiting enabled", "per_hour", rl.PerHour, "per_day", rl.PerDay)
	return nil
}

// sessionJanitor removes expired sessions hourly
func (a *App) sessionJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.auth.CleanupExpired(ctx)
			if err != nil {
				a.logger.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				a.logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// Close releases the stores. It is safe after a failed Run.
func (a *App) Close() error {
	if a.limiter != nil {
		if err := a.limiter.Stop(); err != nil {
			a.logger.Error("rate limiter stop error", "error", err)
		}
	}
	if a.rateDB != nil {
		a.rateDB.Close()
	}
	if err := a.index.Close(); err != nil {
		a.logger.Error("content index close error", "error", err)
	}
	return a.db.Close()
}

// NewLogger builds the process logger from the logging section
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "console":
		handler = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}
