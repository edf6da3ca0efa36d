// Package orchestrate implements the Orchestrator (C10, §4.10):
// fetch_all_mentions fans out to every enabled provider in parallel,
// applies the Deduplicator and optional Relevance Filter, and returns a
// deterministically ordered candidate list.
//
// Grounded on the teacher's fan-out shape in its feed-aggregation
// use cases (parallel per-source fetch, per-source error isolation) —
// generalized here to per-provider fan-out via errgroup, matching the
// searchapi provider's own internal fan-out style for consistency.
package orchestrate

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"mediascrape/internal/dedup"
	"mediascrape/internal/domain/entity"
	"mediascrape/internal/observability/metrics"
	"mediascrape/internal/provider"
	"mediascrape/internal/relevance"
)

// MaxKeywordsPerRun and MaxTotalURLsPerRun are the §4.10 guardrail
// defaults.
const (
	MaxKeywordsPerRun  = 50
	MaxTotalURLsPerRun = 200
)

// Config tunes the Orchestrator's guardrails.
type Config struct {
	MaxKeywordsPerRun  int
	MaxTotalURLsPerRun int
}

func DefaultConfig() Config {
	return Config{MaxKeywordsPerRun: MaxKeywordsPerRun, MaxTotalURLsPerRun: MaxTotalURLsPerRun}
}

// Orchestrator runs fetch_all_mentions over a set of providers.
type Orchestrator struct {
	cfg       Config
	providers []provider.Provider
	dedup     *dedup.Deduplicator
	relevance relevance.Scorer
}

func New(cfg Config, providers []provider.Provider, deduplicator *dedup.Deduplicator, scorer relevance.Scorer) *Orchestrator {
	if cfg.MaxKeywordsPerRun <= 0 {
		cfg.MaxKeywordsPerRun = MaxKeywordsPerRun
	}
	if cfg.MaxTotalURLsPerRun <= 0 {
		cfg.MaxTotalURLsPerRun = MaxTotalURLsPerRun
	}
	if scorer == nil {
		scorer = relevance.Noop{}
	}
	return &Orchestrator{cfg: cfg, providers: providers, dedup: deduplicator, relevance: scorer}
}

// FetchAllMentions runs the full pipeline: keyword cleaning/capping,
// parallel provider fan-out with isolated errors, Stage-1/Stage-2 dedup,
// Relevance Filter, and final ordering, per §4.10.
func (o *Orchestrator) FetchAllMentions(ctx context.Context, keywords []string, brandName string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	cleaned := o.cleanAndCapKeywords(keywords, runID)

	candidates := o.runProviders(ctx, cleaned, fromDate, toDate, runID)

	deduped := o.dedup.Dedupe(candidates)
	metrics.RecordDuplicatesRemoved("exact_url_and_fuzzy", len(candidates)-len(deduped))

	filtered := relevance.Filter(ctx, o.relevance, brandName, deduped)

	return o.capAndSort(filtered, runID)
}

// cleanAndCapKeywords drops empty keywords and caps the remainder at
// MaxKeywordsPerRun, incrementing a guardrail counter on overflow.
func (o *Orchestrator) cleanAndCapKeywords(keywords []string, runID string) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	if len(cleaned) > o.cfg.MaxKeywordsPerRun {
		slog.Warn("orchestrator: keyword count exceeds max_keywords_per_run, capping",
			slog.String("run_id", runID), slog.Int("count", len(cleaned)), slog.Int("max", o.cfg.MaxKeywordsPerRun))
		metrics.RecordGuardrailEvent("max_keywords_per_run", "", "overflow")
		cleaned = cleaned[:o.cfg.MaxKeywordsPerRun]
	}
	return cleaned
}

// runProviders runs every provider in parallel via provider.Run,
// isolating each provider's own error/partial-result per §4.7.5, and
// records duration/outcome telemetry for each.
func (o *Orchestrator) runProviders(ctx context.Context, keywords []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	results := make([][]entity.RawCandidate, len(o.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range o.providers {
		i, p := i, p
		g.Go(func() error {
			candidates, outcome := provider.Run(gctx, p, keywords, fromDate, toDate, runID)
			metrics.RecordProviderDuration(outcome.Provider, outcome.Duration)
			if outcome.ErrorType != "" {
				metrics.RecordHTTPError(outcome.Provider, outcome.ErrorType)
			}
			results[i] = candidates
			return nil // provider errors never fail the group, per §4.7.5
		})
	}
	_ = g.Wait()

	var out []entity.RawCandidate
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// capAndSort caps the accepted candidate count at MaxTotalURLsPerRun
// (dropping excess with a guardrail event) and sorts by
// (published_at desc NULLS LAST, date_confidence desc, title asc).
func (o *Orchestrator) capAndSort(candidates []entity.RawCandidate, runID string) []entity.RawCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if (a.PublishedAt == nil) != (b.PublishedAt == nil) {
			return a.PublishedAt != nil // non-nil sorts first
		}
		if a.PublishedAt != nil && b.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt) {
			return a.PublishedAt.After(*b.PublishedAt)
		}
		if a.DateConfidence != b.DateConfidence {
			return confidenceRank(a.DateConfidence) > confidenceRank(b.DateConfidence)
		}
		return a.Title < b.Title
	})

	if len(candidates) > o.cfg.MaxTotalURLsPerRun {
		slog.Warn("orchestrator: candidate count exceeds max_total_urls_per_run, capping",
			slog.String("run_id", runID), slog.Int("count", len(candidates)), slog.Int("max", o.cfg.MaxTotalURLsPerRun))
		metrics.RecordGuardrailEvent("max_total_urls_per_run", "", "capped")
		candidates = candidates[:o.cfg.MaxTotalURLsPerRun]
	}
	return candidates
}

func confidenceRank(c entity.DateConfidence) int {
	switch c {
	case entity.DateConfidenceHigh:
		return 3
	case entity.DateConfidenceMedium:
		return 2
	case entity.DateConfidenceLow:
		return 1
	default:
		return 0
	}
}
