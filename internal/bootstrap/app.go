package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/televault/televault/internal/adapters/middleware"
	"github.com/televault/televault/pkg/safego"
)

// NOTE: The App struct and NewApp function are defined in providers.go for Wire.
// This file should only contain methods for the App struct, like Run().

// Run starts the cache service: recovers a persisted session, starts
// the revalidation workers, serves the health/metrics surface and
// handles graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	appCfg := a.configProvider.Get()
	a.logger.Info(ctx, "Starting application", "service_name", appCfg.App.ServiceName, "version", appCfg.App.Version)

	// Startup recovery: a persisted token, if any, restores the
	// authenticated session before any request needs it.
	if err := a.authService.Load(ctx); err != nil {
		a.logger.Warn(ctx, "Session recovery failed, starting unauthenticated", "error", err.Error())
	}

	a.revalidator.Start(ctx)

	healthHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"OK"}`)
	})
	a.httpServeMux.Handle("GET /health", middleware.RequestIDMiddleware(healthHandler))

	readyHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ready := true
		dependenciesStatus := make(map[string]string)

		if err := a.store.Ping(r.Context()); err == nil {
			dependenciesStatus["store"] = "connected"
		} else {
			dependenciesStatus["store"] = "disconnected"
			ready = false
			a.logger.Warn(r.Context(), "Readiness check failed: store ping failed", "error", err.Error())
		}
		dependenciesStatus["session"] = "unauthenticated"
		if a.authService.IsAuthenticated() {
			dependenciesStatus["session"] = "authenticated"
		}

		response := struct {
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		}{
			Dependencies: dependenciesStatus,
		}
		if ready {
			response.Status = "READY"
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = "NOT_READY"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			a.logger.Error(r.Context(), "Failed to encode readiness response", "error", err.Error())
		}
	})
	a.httpServeMux.Handle("GET /ready", middleware.RequestIDMiddleware(readyHandler))

	a.httpServeMux.Handle("GET /metrics", middleware.RequestIDMiddleware(promhttp.Handler()))
	a.logger.Info(ctx, "Prometheus metrics endpoint registered at /metrics")

	safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := 30 * time.Second
		if appCfg.App.ShutdownTimeoutSeconds > 0 {
			shutdownTimeout = time.Duration(appCfg.App.ShutdownTimeoutSeconds) * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
	})

	a.logger.Info(ctx, "HTTP server starting", "address", a.httpServer.Addr)
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server failed", "error", err.Error())
		return err
	}

	a.logger.Info(ctx, "Application stopped")
	return nil
}
