// Package metrics provides the Prometheus metrics registry (C13, §4.13):
// scrape-run outcomes, provider HTTP errors, extraction results, dedup
// counts, guardrail events, and the duration histograms that back the
// /metrics endpoint.
//
// Example usage:
//
//	start := time.Now()
//	candidates := provider.Scrape(ctx, keywords, from, to, runID)
//	metrics.RecordProviderDuration("gnews", time.Since(start))
package metrics
