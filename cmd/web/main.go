package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"donki-dashboard/internal/config"
	"donki-dashboard/internal/middleware"
	"donki-dashboard/internal/observability"
	"donki-dashboard/internal/server"
	"donki-dashboard/internal/services"
	"donki-dashboard/internal/storage"
	"donki-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	csvLoadTimeout = 30 * time.Second
	cacheMaxAge    = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application", "config", cfg)

	analytics := services.NewAnalytics(logger)

	var store *storage.Store
	if cfg.Data.SnapshotDir != "" {
		store, err = storage.Open(cfg.Data.SnapshotDir)
		if err != nil {
			logger.Error("failed to open snapshot store", "error", err)
			os.Exit(1)
		}
	}

	if err := seedData(analytics, store, cfg, logger); err != nil {
		logger.Error("failed to seed data", "error", err)
		os.Exit(1)
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(analytics, store, logger, templateHandlers, cfg.Data.MaxUploadBytes)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	if store != nil {
		gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
			logger.Info("closing snapshot store")
			return store.Close()
		})
	}

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

// seedData restores the persisted snapshot if one exists, otherwise
// loads the configured CSV file (and persists the result). Starting
// with no data at all is fine; the dashboard waits for an upload.
func seedData(analytics *services.Analytics, store *storage.Store, cfg *config.Config, logger *slog.Logger) error {
	if store != nil {
		snap, err := store.Load()
		if err != nil {
			logger.Warn("failed to load persisted snapshot", "error", err)
		} else if snap != nil && len(snap.Transactions) > 0 {
			analytics.Restore(snap)
			logger.Info("restored persisted snapshot",
				"records", len(snap.Transactions),
				"last_updated", snap.LastUpdated,
			)
			return nil
		}
	}

	if cfg.Data.CSVFile == "" {
		logger.Info("no seed CSV configured, starting empty")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	defer cancel()

	if err := analytics.LoadFromCSV(ctx, cfg.Data.CSVFile); err != nil {
		return err
	}

	if store != nil {
		if err := store.Save(analytics.Snapshot()); err != nil {
			logger.Warn("failed to persist seeded snapshot", "error", err)
		}
	}
	return nil
}
