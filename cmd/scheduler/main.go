// Command scheduler runs the hourly due-brand sweep (C12, §4.12) and
// exposes the same /health and /metrics endpoints as the API process so it
// can be probed independently in its own deployment.
//
// Exit codes, per §6.3: 0 on normal shutdown (even if individual brand
// runs failed along the way — those are logged, not fatal), 1 on a
// configuration error, 2 when the Store cannot be reached at startup.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mediascrape/internal/app"
	hhttp "mediascrape/internal/handler/http"
	"mediascrape/internal/observability/logging"
	"mediascrape/internal/schedule"
)

const (
	exitOK          uint8 = 0
	exitConfigError uint8 = 1
	exitStoreError  uint8 = 2
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.Build(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to build application", slog.Any("error", err))
		os.Exit(int(classifyBuildError(err)))
	}
	defer application.Close()

	sched := schedule.New(schedule.DefaultConfig(), application.Store, application.Coordinator)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(int(exitConfigError))
	}

	srv := runHealthServer(logger, application)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down scheduler")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("scheduler health server shutdown failed", slog.Any("error", err))
	}
	logger.Info("scheduler stopped")
	os.Exit(int(exitOK))
}

// classifyBuildError distinguishes a missing/invalid configuration (no
// DATABASE_URL set, §6.3 exit code 1) from a Store that is configured but
// unreachable (exit code 2) — app.Build wraps both as plain errors from
// postgres.Open, so the distinction is made on the error text.
func classifyBuildError(err error) uint8 {
	if strings.Contains(err.Error(), "DATABASE_URL not set") {
		return exitConfigError
	}
	return exitStoreError
}

func runHealthServer(logger *slog.Logger, application *app.App) *http.Server {
	mux := http.NewServeMux()
	hhttp.RegisterMetrics(mux)
	hhttp.HealthHandler{DB: application.DB}.Register(mux)

	addr := os.Getenv("SCHEDULER_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	ctx := context.Background()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("scheduler health server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("scheduler health server failed", slog.Any("error", err))
		}
	}()

	return srv
}
