package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterMetrics mounts GET /metrics (§6.3), the text exposition of the
// scrape_* metrics registered in internal/observability/metrics.
func RegisterMetrics(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}
