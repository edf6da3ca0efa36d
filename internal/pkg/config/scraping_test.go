package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadScrapingConfig_Defaults(t *testing.T) {
	cfg := LoadScrapingConfig()

	assert.Equal(t, 50, cfg.MaxKeywordsPerRun)
	assert.Equal(t, 200, cfg.MaxTotalURLsPerRun)
	assert.Equal(t, 8, cfg.BlindDomainCircuitThreshold)
	assert.Equal(t, 1.5, cfg.RateHTMLRps)
	assert.Equal(t, 3.0, cfg.RateAPIRps)
	assert.Equal(t, 2.0, cfg.RateRSSRps)
	assert.True(t, cfg.FuzzyDedupEnabled)
	assert.Equal(t, 92, cfg.FuzzyDedupThreshold)
	assert.Equal(t, 2, cfg.FuzzyDedupDayWindow)
}

func TestLoadScrapingConfig_MissingAPIKeyDisablesProvider(t *testing.T) {
	t.Setenv("SCRAPING_PROVIDER_GNEWS_ENABLED", "true")
	t.Setenv("GNEWS_API_KEY", "")

	cfg := LoadScrapingConfig()

	assert.False(t, cfg.Providers.GNews, "provider toggle should be forced off without an API key")
}

func TestLoadScrapingConfig_APIKeyPresentKeepsProviderEnabled(t *testing.T) {
	t.Setenv("SCRAPING_PROVIDER_SERPAPI_ENABLED", "true")
	t.Setenv("SERPAPI_API_KEY", "test-key")

	cfg := LoadScrapingConfig()

	assert.True(t, cfg.Providers.SerpAPI)
	assert.Equal(t, "test-key", cfg.SerpAPIKey)
}

func TestLoadScrapingConfig_InvalidRateFallsBackToDefault(t *testing.T) {
	t.Setenv("SCRAPING_RATE_HTML_RPS", "not-a-number")

	cfg := LoadScrapingConfig()

	assert.Equal(t, 1.5, cfg.RateHTMLRps)
}

func TestLoadScrapingConfig_ParsesDefaultLanguagesList(t *testing.T) {
	t.Setenv("SCRAPING_DEFAULT_LANGUAGES", "en, fr ,de")

	cfg := LoadScrapingConfig()

	assert.Equal(t, []string{"en", "fr", "de"}, cfg.DefaultLanguages)
}

func TestLoadScrapingConfig_FuzzyDedupThresholdOutOfRangeFallsBack(t *testing.T) {
	t.Setenv("SCRAPING_FUZZY_DEDUP_THRESHOLD", "150")

	cfg := LoadScrapingConfig()

	assert.Equal(t, 92, cfg.FuzzyDedupThreshold)
}

func TestLoadScrapingConfig_OpenAIAndAnthropicKeysAreIndependent(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "openai-test-key")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-test-key")

	cfg := LoadScrapingConfig()

	assert.Equal(t, "openai-test-key", cfg.OpenAIAPIKey)
	assert.Equal(t, "anthropic-test-key", cfg.AnthropicAPIKey)
}
