// Command api serves the scraping core's operational HTTP surface (§6.3):
// POST /scrape/brand/{id}, GET /metrics, GET /health.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediascrape/internal/app"
	hhttp "mediascrape/internal/handler/http"
	"mediascrape/internal/handler/http/requestid"
	"mediascrape/internal/handler/http/scrape"
	"mediascrape/internal/observability/logging"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.Build(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to build application", slog.Any("error", err))
		os.Exit(1)
	}
	defer application.Close()

	mux := http.NewServeMux()
	scrape.Register(mux, application.Store, application.Coordinator)
	hhttp.RegisterMetrics(mux)
	hhttp.HealthHandler{DB: application.DB}.Register(mux)

	handler := hhttp.Chain(mux, requestid.Middleware, hhttp.Logging(logger), hhttp.Recover(logger))

	runServer(logger, handler)
}

func runServer(logger *slog.Logger, handler http.Handler) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("api server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down api server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", slog.Any("error", err))
	}
	logger.Info("api server stopped")
}
