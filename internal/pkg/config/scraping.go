package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// ProviderToggles names which scraping providers are enabled, per §6.2's
// SCRAPING_PROVIDER_{GNEWS,SERPAPI,RSS,CONFIGURABLE}_ENABLED options.
type ProviderToggles struct {
	GNews        bool
	SerpAPI      bool
	RSS          bool
	Configurable bool
}

// ScrapingConfig aggregates every environment-tunable knob named in
// §6.2 in one flat struct, so the process entrypoints (cmd/api,
// cmd/scheduler) have one place to load from; app.Build copies its
// fields into orchestrate.Config, dedup.Config and governor.Config.
type ScrapingConfig struct {
	Providers ProviderToggles

	MaxKeywordsPerRun  int
	MaxTotalURLsPerRun int

	BlindDomainCircuitThreshold int

	RateHTMLRps float64
	RateAPIRps  float64
	RateRSSRps  float64

	FuzzyDedupEnabled   bool
	FuzzyDedupThreshold int
	FuzzyDedupDayWindow int

	DefaultLanguages []string

	GNewsAPIKey     string
	SerpAPIKey      string
	AnthropicAPIKey string // Source Recipe Analyzer (C14)
	OpenAIAPIKey    string // Relevance Filter (C9)
}

// LoadScrapingConfig reads every §6.2 environment variable, falling back
// to the documented defaults (and logging a warning) on any invalid
// value, mirroring the teacher's LoadConfigFromEnv for WorkerConfig.
func LoadScrapingConfig() ScrapingConfig {
	cfg := ScrapingConfig{
		Providers: ProviderToggles{
			GNews:        LoadEnvBool("SCRAPING_PROVIDER_GNEWS_ENABLED", true).Value.(bool),
			SerpAPI:      LoadEnvBool("SCRAPING_PROVIDER_SERPAPI_ENABLED", true).Value.(bool),
			RSS:          LoadEnvBool("SCRAPING_PROVIDER_RSS_ENABLED", true).Value.(bool),
			Configurable: LoadEnvBool("SCRAPING_PROVIDER_CONFIGURABLE_ENABLED", true).Value.(bool),
		},
		GNewsAPIKey:     LoadEnvString("GNEWS_API_KEY", ""),
		SerpAPIKey:      LoadEnvString("SERPAPI_API_KEY", ""),
		AnthropicAPIKey: LoadEnvString("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    LoadEnvString("OPENAI_API_KEY", ""),
	}

	cfg.MaxKeywordsPerRun = loadPositiveInt("SCRAPING_MAX_KEYWORDS_PER_RUN", 50)
	cfg.MaxTotalURLsPerRun = loadPositiveInt("SCRAPING_MAX_TOTAL_URLS_PER_RUN", 200)
	cfg.BlindDomainCircuitThreshold = loadPositiveInt("SCRAPING_BLIND_DOMAIN_CIRCUIT_THRESHOLD", 8)

	cfg.RateHTMLRps = loadPositiveFloat("SCRAPING_RATE_HTML_RPS", 1.5)
	cfg.RateAPIRps = loadPositiveFloat("SCRAPING_RATE_API_RPS", 3.0)
	cfg.RateRSSRps = loadPositiveFloat("SCRAPING_RATE_RSS_RPS", 2.0)

	cfg.FuzzyDedupEnabled = LoadEnvBool("SCRAPING_FUZZY_DEDUP_ENABLED", true).Value.(bool)
	cfg.FuzzyDedupThreshold = loadIntInRange("SCRAPING_FUZZY_DEDUP_THRESHOLD", 92, 0, 100)
	cfg.FuzzyDedupDayWindow = loadPositiveInt("SCRAPING_FUZZY_DEDUP_DAY_WINDOW", 2)

	if raw := LoadEnvString("SCRAPING_DEFAULT_LANGUAGES", ""); raw != "" {
		for _, lang := range strings.Split(raw, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				cfg.DefaultLanguages = append(cfg.DefaultLanguages, lang)
			}
		}
	}

	// Per §6.2's "API keys for external scrapers: disable provider if
	// absent", a missing key force-disables that provider even if the
	// explicit toggle left it on.
	if cfg.Providers.GNews && cfg.GNewsAPIKey == "" {
		slog.Warn("scraping config: GNEWS_API_KEY not set, disabling GNews provider")
		cfg.Providers.GNews = false
	}
	if cfg.Providers.SerpAPI && cfg.SerpAPIKey == "" {
		slog.Warn("scraping config: SERPAPI_API_KEY not set, disabling SerpAPI provider")
		cfg.Providers.SerpAPI = false
	}

	return cfg
}

func loadPositiveInt(envKey string, defaultValue int) int {
	result := LoadEnvInt(envKey, defaultValue, func(v int) error { return ValidateIntRange(v, 1, 1_000_000) })
	if result.FallbackApplied {
		slog.Warn("scraping config: falling back to default", slog.String("env", envKey), slog.Any("warnings", result.Warnings))
	}
	return result.Value.(int)
}

func loadIntInRange(envKey string, defaultValue, min, max int) int {
	result := LoadEnvInt(envKey, defaultValue, func(v int) error { return ValidateIntRange(v, min, max) })
	if result.FallbackApplied {
		slog.Warn("scraping config: falling back to default", slog.String("env", envKey), slog.Any("warnings", result.Warnings))
	}
	return result.Value.(int)
}

// loadPositiveFloat has no shared float loader in the config package
// (the teacher's loader.go only covers string/duration/int/bool), so
// rates are parsed locally with the same "invalid -> default + warning"
// shape the other loaders use.
func loadPositiveFloat(envKey string, defaultValue float64) float64 {
	raw := LoadEnvString(envKey, "")
	if raw == "" {
		return defaultValue
	}
	var parsed float64
	if _, err := fmt.Sscanf(raw, "%g", &parsed); err != nil || parsed <= 0 {
		slog.Warn("scraping config: invalid rate, falling back to default",
			slog.String("env", envKey), slog.String("value", raw), slog.Float64("default", defaultValue))
		return defaultValue
	}
	return parsed
}
