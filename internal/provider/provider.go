// Package provider defines the common Provider contract shared by the four
// concrete implementations (§4.7): News-API (gnews), Search-API
// (searchapi), RSS, and Configurable HTML (htmlsource).
package provider

import (
	"context"
	"time"

	"mediascrape/internal/domain/entity"
)

// Provider scrapes candidates for a set of keywords within a date window.
// Per §4.7.5, a provider's own failures never propagate as an error: they
// are logged internally and the provider returns whatever partial result
// it collected.
type Provider interface {
	Name() string
	Scrape(ctx context.Context, keywords []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate
}

// Outcome carries the per-call telemetry the Orchestrator records for
// every provider invocation. Run fills Provider, Duration and Candidates;
// Scrape reports no error to its caller, so Run never sets ErrorType and
// it is always empty.
type Outcome struct {
	Provider  string
	Duration  time.Duration
	Candidates int
	ErrorType string // empty when no error occurred
}

// Run wraps a Provider's Scrape call with timing, matching the
// teacher's circuit-breaker-wrapped doFetch pattern but at the provider
// level rather than per-HTTP-call: the provider itself isolates its own
// HTTP/parse errors and Run only measures the outer call.
func Run(ctx context.Context, p Provider, keywords []string, fromDate, toDate time.Time, runID string) ([]entity.RawCandidate, Outcome) {
	start := time.Now()
	candidates := p.Scrape(ctx, keywords, fromDate, toDate, runID)
	return candidates, Outcome{
		Provider:   p.Name(),
		Duration:   time.Since(start),
		Candidates: len(candidates),
	}
}
