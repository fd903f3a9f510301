// Package app wires the application together: configuration, logging,
// storage, the decision core and the HTTP server lifecycle. It is the one
// place that constructs concrete dependencies; everything below it works
// against interfaces.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"licensegate/internal/config"
	"licensegate/internal/infrastructure"
	"licensegate/internal/license"
	customMiddleware "licensegate/internal/middleware"
	"licensegate/internal/registry"
	"licensegate/internal/services"
	"licensegate/internal/sqlite"
	httptransport "licensegate/internal/transport/http"
	"licensegate/pkg/contracts"
)

// Application holds the wired dependencies and the HTTP server.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sqlite.DB
	Server *http.Server

	validationService services.ValidationService
	moduleService     services.ModuleService
}

// NewApplication constructs the application from configuration. The engine
// gets the sqlite backend as its license store, settings source and seat
// source; the registry bridges the two module generations from the same
// database.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	reg := registry.New(db.CurrentModules(), db.LegacyModules())
	engine := license.NewEngine(db, reg, db, db)

	a := &Application{
		Config:            cfg,
		Logger:            logger,
		DB:                db,
		validationService: services.NewValidationService(engine, db, logger),
		moduleService:     services.NewModuleService(reg, db, logger),
	}
	a.Server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.InfoContext(ctx, "application initialized",
		slog.String("version", contracts.Version),
		slog.String("addr", cfg.Addr()),
		slog.String("storage", cfg.Storage.Path),
	)
	return a, nil
}

// router builds the middleware chain and mounts the handlers.
func (a *Application) router() chi.Router {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(chimiddleware.Timeout(a.Config.Server.RequestTimeout))
	if a.Config.Security.RateLimit.Enabled {
		limiter := customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		)
		r.Use(limiter.Handler)
	}

	validationHandler := httptransport.NewValidationHandler(a.validationService, a.Logger)
	moduleHandler := httptransport.NewModuleHandler(a.moduleService, a.Logger)
	adminHandler := httptransport.NewAdminHandler(a.moduleService, a.Logger)
	healthHandler := httptransport.NewHealthHandler(a.DB, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/license", validationHandler.Routes())
		r.Mount("/modules", moduleHandler.Routes())
		r.Mount("/admin", adminHandler.Routes())
		r.Get("/version", healthHandler.Version)
	})
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Start runs the HTTP server until the context is cancelled.
func (a *Application) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "http server listening",
			slog.String("addr", a.Server.Addr),
		)
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		return a.Stop(context.Background())
	}
}

// Stop gracefully shuts the server down and releases resources.
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Logger.InfoContext(shutdownCtx, "shutting down")
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	infrastructure.CloseLogFile()
	return nil
}

// Run starts the application and blocks until an interrupt signal.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Start(ctx)
}
