package http

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"mediascrape/internal/handler/http/respond"
)

// HealthHandler answers GET /health (§6.3): 200 when the Store is
// reachable, 503 otherwise.
type HealthHandler struct {
	DB *sql.DB
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		slog.Default().Error("health check failed", slog.Any("error", err))
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Register mounts the health route onto mux.
func (h HealthHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /health", h)
}
