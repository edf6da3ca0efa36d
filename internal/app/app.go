// Package app wires the scraping core's dependency graph once, shared by
// cmd/api and cmd/scheduler, mirroring the teacher's cmd/worker/main.go
// setupFetchService split: a single Build step constructs every
// collaborator from environment configuration, and the caller owns the
// resulting *sql.DB's lifetime.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"mediascrape/internal/coordinate"
	"mediascrape/internal/dedup"
	"mediascrape/internal/governor"
	"mediascrape/internal/handler/http/respond"
	"mediascrape/internal/infra/adapter/postgres"
	"mediascrape/internal/infra/httpclient"
	"mediascrape/internal/orchestrate"
	"mediascrape/internal/pkg/config"
	"mediascrape/internal/provider"
	"mediascrape/internal/provider/gnews"
	"mediascrape/internal/provider/htmlsource"
	"mediascrape/internal/provider/rss"
	"mediascrape/internal/provider/searchapi"
	"mediascrape/internal/relevance"
	"mediascrape/internal/repository"
)

// App holds every process-wide collaborator the scraping core needs,
// built once at startup and shared across the HTTP surface and the
// scheduler.
type App struct {
	DB          *sql.DB
	Store       repository.Store
	Config      config.ScrapingConfig
	Coordinator *coordinate.Coordinator
}

// Build opens the database, loads §6.2 configuration, and constructs the
// full provider/governor/relevance/orchestrator/coordinator graph.
func Build(ctx context.Context) (*App, error) {
	db, err := postgres.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cfg := config.LoadScrapingConfig()
	store := postgres.NewStore(db)
	recipes := postgres.NewSourceRecipeRepo(db)

	gov := governor.New(governor.Config{
		HTMLRps:                cfg.RateHTMLRps,
		APIRps:                 cfg.RateAPIRps,
		RSSRps:                 cfg.RateRSSRps,
		HTMLConcurrency:        governor.DefaultConfig().HTMLConcurrency,
		APIConcurrency:         governor.DefaultConfig().APIConcurrency,
		RSSConcurrency:         governor.DefaultConfig().RSSConcurrency,
		DomainFailureThreshold: uint32(cfg.BlindDomainCircuitThreshold),
		DomainCooldown:         governor.DefaultConfig().DomainCooldown,
	})
	client := httpclient.New()

	var providers []provider.Provider
	if cfg.Providers.GNews {
		providers = append(providers, gnews.New(gnews.Config{
			BaseURL: "https://gnews.io/api/v4/search",
			APIKey:  cfg.GNewsAPIKey,
		}, client, gov))
	}
	if cfg.Providers.SerpAPI {
		providers = append(providers, searchapi.New(searchapi.Config{
			BaseURL: "https://serpapi.com/search",
			APIKey:  cfg.SerpAPIKey,
		}, client, gov))
	}
	if cfg.Providers.RSS {
		providers = append(providers, rss.New(rss.Config{}, client, gov))
	}
	if cfg.Providers.Configurable {
		providers = append(providers, htmlsource.New(client, gov, recipes))
	}
	if len(providers) == 0 {
		slog.Warn("no scraping providers enabled, scrape runs will find nothing")
	}

	scorer := buildScorer(cfg)

	deduplicator := dedup.New(dedup.Config{
		FuzzyEnabled:   cfg.FuzzyDedupEnabled,
		FuzzyThreshold: cfg.FuzzyDedupThreshold,
		DayWindow:      cfg.FuzzyDedupDayWindow,
	}, store)

	orchestrator := orchestrate.New(orchestrate.Config{
		MaxKeywordsPerRun:  cfg.MaxKeywordsPerRun,
		MaxTotalURLsPerRun: cfg.MaxTotalURLsPerRun,
	}, providers, deduplicator, scorer)

	coordinator := coordinate.New(store, orchestrator, deduplicator)

	return &App{
		DB:          db,
		Store:       store,
		Config:      cfg,
		Coordinator: coordinator,
	}, nil
}

// buildScorer picks the Relevance Filter backend per §4.9: OpenAI-backed
// when an API key is configured, otherwise a pass-through Noop scorer.
// The OpenAI scorer is wrapped in FailOpen so a misbehaving scorer never
// blocks a run; Noop is returned unwrapped since it always keeps.
func buildScorer(cfg config.ScrapingConfig) relevance.Scorer {
	if cfg.OpenAIAPIKey == "" {
		return relevance.Noop{}
	}
	return relevance.NewFailOpen(relevance.NewOpenAIScorer(cfg.OpenAIAPIKey, "gpt-4o-mini"))
}

// Close releases the database connection pool, logging (via the sanitized
// respond.SanitizeError) rather than propagating a close failure, since
// there's nothing left to do with it at shutdown.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", respond.SanitizeError(err)))
	}
}
