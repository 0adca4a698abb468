// Package app wires configuration, logging, the refresh service, and the
// HTTP router into a runnable application.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/infrastructure"
	"rollcall/internal/middleware"
	"rollcall/internal/services"
	"rollcall/internal/sheets"
	handlers "rollcall/internal/transport/http"
)

// Version is the application version, overridable at build time.
var Version = "dev"

// Application is the dependency container for the attendance server.
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Router  *chi.Mux
	Server  *http.Server
	Refresh *services.RefreshService

	logCloser io.Closer
}

// New builds an application from the configuration at configPath.
func New(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, logCloser, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("sheet_count", len(cfg.Sheets)),
		slog.String("refresh_interval", cfg.Refresh.Interval.String()))

	fetcher := sheets.NewFetcher(logger, cfg.Refresh.FetchTimeout)
	aggregator := attendance.NewAggregator(logger, attendance.AggregatorConfig{
		Threshold: cfg.Refresh.Threshold,
	})
	refresh := services.NewRefreshService(fetcher, aggregator, services.RefreshServiceConfig{
		Sources:      cfg.Sheets,
		Interval:     cfg.Refresh.Interval,
		CycleTimeout: cfg.Refresh.CycleTimeout,
	}, logger, prometheus.DefaultRegisterer)

	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Refresh:   refresh,
		logCloser: logCloser,
	}
	a.setupRouter()

	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.Logger))
	r.Use(middleware.NewRateLimiter(
		a.Config.Server.RateLimitRPS,
		a.Config.Server.RateLimitBurst,
		a.Logger,
	).Handler)

	attendanceHandler := handlers.NewAttendanceHandler(a.Refresh, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.Refresh, Version)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/attendance", attendanceHandler.Routes())
		r.Mount("/health", healthHandler.Routes())
	})

	r.Handle("/metrics", promhttp.Handler())

	// Static UI. The dashboard polls the JSON API; all rendering happens in
	// the browser.
	if dir := a.Config.Paths.WebDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			r.Handle("/*", http.FileServer(http.Dir(dir)))
		} else {
			a.Logger.Warn("web directory not found, static UI disabled",
				slog.String("web_dir", dir))
		}
	}

	a.Router = r
}

// Run starts the refresh loop and the HTTP server, then blocks until an
// interrupt arrives and the server has drained.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		a.Refresh.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.Logger.Info("HTTP server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		stop()
		<-refreshDone
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	select {
	case <-refreshDone:
	case <-time.After(a.Config.Server.ShutdownTimeout):
		a.Logger.Warn("refresh loop did not stop in time")
	}

	if a.logCloser != nil {
		a.logCloser.Close()
	}
	return nil
}
