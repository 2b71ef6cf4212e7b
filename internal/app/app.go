package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/exporter"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	customMiddleware "github.com/Simon3728/Data-Analysis-Election/internal/middleware"
	"github.com/Simon3728/Data-Analysis-Election/internal/store"
	handlers "github.com/Simon3728/Data-Analysis-Election/internal/transport/http"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts"
)

// Application represents the report server
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        chi.Router
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.AnalysisMetrics
	Store         *store.Store
	Reports       *exporter.ReportExporter
}

// NewApplication wires the report server from configuration.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	app := &Application{
		Config: cfg,
		Paths:  paths,
		Logger: infrastructure.WithComponent(logger, "app"),
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}
	app.setupRouter()
	app.createServer()
	return app, nil
}

func (a *Application) initializeServices() error {
	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(a.Config.Telemetry), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.OTelProviders = providers

	metrics, err := infrastructure.CreateAnalysisMetrics(providers.Meter)
	if err != nil {
		a.Logger.Warn("Failed to create metrics, continuing without them", slog.String("error", err.Error()))
		metrics = infrastructure.NoopAnalysisMetrics()
	}
	a.Metrics = metrics

	a.Reports = exporter.NewReportExporter(a.Paths, a.Logger)

	if a.Config.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := store.Open(ctx, a.Config.Database, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		a.Store = s
	}
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → StripSlashes, then OTel → Logger → Recoverer → headers → limiter
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Metrics stay outside the group so scrapes are not rate limited.
	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		path := a.Config.Telemetry.PrometheusPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteError(w, apperrors.NewWithDetails(http.StatusNotFound, "NOT_FOUND", "route not found", r.URL.Path))
	})

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	checks := map[string]handlers.Pinger{}
	if a.Store != nil {
		checks["database"] = a.Store
	}
	health := handlers.NewHealthHandler(checks, a.Logger)
	runs := handlers.NewRunsHandler(a.Reports, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", health.HealthCheck)
		r.Get("/health/ready", health.ReadinessCheck)
		r.Get("/version", health.Version)

		r.Route("/v1", func(r chi.Router) {
			r.Mount("/runs", runs.Routes())
		})
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start serves until ctx is cancelled or the listener fails, then shuts down.
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting report server",
		slog.String("version", contracts.GetVersionString(config.AppName)),
		slog.Int("port", a.Config.Server.Port),
		slog.String("reports_dir", a.Paths.ReportsDir))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down report server")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close error: %w", err))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Report server shutdown complete")
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Start(ctx)
}
