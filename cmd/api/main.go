package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/legal-dashboard/internal/adapters/http"
	"github.com/kirillkom/legal-dashboard/internal/bootstrap"
	"github.com/kirillkom/legal-dashboard/internal/config"
	"github.com/kirillkom/legal-dashboard/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.RoleAPI)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.EnsureAdmin(ctx); err != nil {
		slog.Error("admin_seed_failed", "error", err)
		os.Exit(1)
	}

	background := make(chan error, 1)
	go func() {
		background <- app.Run(ctx)
	}()

	router := httpadapter.NewRouter(cfg, httpadapter.Deps{
		Analytics: app.Analytics,
		Dashboard: app.Dashboard,
		Scraping:  app.Scraping,
		Auth:      app.Auth,
		Analysis:  app.Analysis,
		Events:    app.Hub,
		Proxies:   app.Proxies,
		Reports:   app.Reports,
		WebSocket: app.Hub,
		Metrics:   app.HTTPMetrics,
	}).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort, "dispatch_mode", cfg.ScrapeDispatchMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
	if err := <-background; err != nil {
		slog.Error("api_background_failed", "error", err)
	}
	slog.Info("api_stopped")
}
