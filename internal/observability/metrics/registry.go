// Package metrics provides the centralized Prometheus metric registry
// (C13, §4.13): a stable, low-cardinality label set (provider, domain
// eTLD+1, result, guardrail, reason) across every scrape-pipeline stage.
//
// Grounded on the teacher's own registry.go: promauto-registered
// package-level vars plus small Record*/Update* wrapper functions per
// metric, kept here and renamed to the scrape_* namespace from §4.13.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScrapeRunsTotal counts completed scrape runs by outcome status
	// ("success", "locked", "error").
	ScrapeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_runs_total",
			Help: "Total number of scrape runs by status",
		},
		[]string{"status"},
	)

	// ScrapeHTTPErrorsTotal counts HTTP-layer failures per provider and
	// bucketed error_type (e.g. "timeout", "5xx", "4xx", "transport").
	ScrapeHTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_http_errors_total",
			Help: "Total number of HTTP errors encountered by provider",
		},
		[]string{"provider", "error_type"},
	)

	// ScrapeExtractionsTotal counts Extractor outcomes per domain and
	// result ("success", "empty_content", "http_error", "timeout").
	ScrapeExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_extractions_total",
			Help: "Total number of extraction attempts by domain and result",
		},
		[]string{"domain", "result"},
	)

	// ScrapeDuplicatesRemovedTotal counts candidates dropped by dedup
	// stage; the Orchestrator's in-run pass records "exact_url_and_fuzzy".
	ScrapeDuplicatesRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_duplicates_removed_total",
			Help: "Total number of candidates removed by each dedup stage",
		},
		[]string{"stage"},
	)

	// ScrapeGuardrailEventsTotal counts guardrail trips (keyword cap,
	// URL cap, catch-all block overflow, ...) by guardrail/provider/reason.
	ScrapeGuardrailEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_guardrail_events_total",
			Help: "Total number of guardrail events by guardrail, provider, and reason",
		},
		[]string{"guardrail", "provider", "reason"},
	)

	// ScrapePlaywrightFallbackTotal counts browser-fallback attempts by
	// domain and result. It is registered under §4.13's exact name, but
	// the headless fallback in internal/infra/browserfetch does not
	// increment it, so it stays at zero.
	ScrapePlaywrightFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_playwright_fallback_total",
			Help: "Total number of Playwright fallback attempts by domain and result",
		},
		[]string{"domain", "result"},
	)

	// ScrapeRunDuration measures end-to-end Scrape-Run Coordinator duration.
	ScrapeRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrape_run_duration_seconds",
			Help:    "Duration of a full scrape run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~34min
		},
	)

	// ScrapeProviderDuration measures each provider's Scrape call duration.
	ScrapeProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_provider_duration_seconds",
			Help:    "Duration of a single provider's scrape call",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider"},
	)

	// ScrapeRequestDuration measures individual outbound HTTP request
	// duration by provider and target domain.
	ScrapeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_request_duration_seconds",
			Help:    "Duration of a single outbound HTTP request",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"provider", "domain"},
	)

	// ScrapeExtractionContentLength measures extracted content length in
	// bytes by domain, for spotting thin-content sources.
	ScrapeExtractionContentLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "scrape_extraction_content_length",
			Help: "Length of extracted article content in bytes, by domain",
			Buckets: []float64{
				100, 200, 400, 800, 1600, 3200, 6400, 12800, 25600, 51200,
			},
		},
		[]string{"domain"},
	)
)
