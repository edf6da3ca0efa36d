package metrics

import "time"

// RecordScrapeRun records a completed scrape run's terminal status
// ("success", "locked", "error"), per §4.13.
func RecordScrapeRun(status string, duration time.Duration) {
	ScrapeRunsTotal.WithLabelValues(status).Inc()
	ScrapeRunDuration.Observe(duration.Seconds())
}

// RecordHTTPError records an HTTP-layer failure for a provider, bucketed
// by error_type (e.g. "timeout", "5xx", "4xx", "transport").
func RecordHTTPError(provider, errorType string) {
	ScrapeHTTPErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordExtraction records an Extractor outcome for a domain: result is
// one of "success", "empty_content", "http_error", "timeout".
func RecordExtraction(domain, result string, contentLength int) {
	ScrapeExtractionsTotal.WithLabelValues(domain, result).Inc()
	if contentLength > 0 {
		ScrapeExtractionContentLength.WithLabelValues(domain).Observe(float64(contentLength))
	}
}

// RecordDuplicatesRemoved records how many candidates a dedup stage
// dropped. The Orchestrator records its in-run pass under the single
// stage "exact_url_and_fuzzy"; historical dedup is not recorded.
func RecordDuplicatesRemoved(stage string, count int) {
	if count <= 0 {
		return
	}
	ScrapeDuplicatesRemovedTotal.WithLabelValues(stage).Add(float64(count))
}

// RecordGuardrailEvent records a guardrail trip, e.g.
// ("max_keywords_per_run", "", "overflow") or
// ("max_total_urls_per_run", "gnews", "capped").
func RecordGuardrailEvent(guardrail, provider, reason string) {
	ScrapeGuardrailEventsTotal.WithLabelValues(guardrail, provider, reason).Inc()
}

// RecordPlaywrightFallback records a browser-fallback attempt by domain
// and result. The headless fallback in internal/infra/browserfetch (used
// by the htmlsource provider) does not call it, so the counter stays at
// zero.
func RecordPlaywrightFallback(domain, result string) {
	ScrapePlaywrightFallbackTotal.WithLabelValues(domain, result).Inc()
}

// RecordProviderDuration records a single provider's Scrape call duration.
func RecordProviderDuration(provider string, duration time.Duration) {
	ScrapeProviderDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRequestDuration records a single outbound HTTP request's duration.
func RecordRequestDuration(provider, domain string, duration time.Duration) {
	ScrapeRequestDuration.WithLabelValues(provider, domain).Observe(duration.Seconds())
}
