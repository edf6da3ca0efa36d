// Package gnews implements the News-API Provider (§4.7.1): a GNews-like
// JSON search API queried with OR-joined keyword batches and pagination.
package gnews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mediascrape/internal/domain/entity"
	"mediascrape/internal/governor"
	"mediascrape/internal/infra/httpclient"
)

// MaxQueryChars bounds the OR-joined keyword batch per request, matching
// typical news-search-API query length limits.
const MaxQueryChars = 500

// MaxPages caps pagination per run to bound worst-case request volume.
const MaxPages = 5

const PageSize = 25

// Config configures the provider's target API.
type Config struct {
	BaseURL string // e.g. "https://gnews.io/api/v4/search"
	APIKey  string
	Lang    string
	Country string
}

type Provider struct {
	cfg    Config
	client *httpclient.Client
	gov    *governor.Governor
}

func New(cfg Config, client *httpclient.Client, gov *governor.Governor) *Provider {
	return &Provider{cfg: cfg, client: client, gov: gov}
}

func (p *Provider) Name() string { return "gnews" }

type apiResponse struct {
	TotalArticles int           `json:"totalArticles"`
	Articles      []apiArticle  `json:"articles"`
}

type apiArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

// Scrape batches keywords into OR-joined queries under MaxQueryChars,
// paginates each batch up to MaxPages, and returns whatever was collected
// even if a batch or page failed (§4.7.5).
func (p *Provider) Scrape(ctx context.Context, keywords []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	if p.cfg.BaseURL == "" || p.cfg.APIKey == "" {
		slog.Warn("gnews provider not configured, skipping", slog.String("run_id", runID))
		return nil
	}

	var out []entity.RawCandidate
	for _, batch := range batchKeywords(keywords, MaxQueryChars) {
		out = append(out, p.scrapeBatch(ctx, batch, fromDate, toDate, runID)...)
	}
	return out
}

func (p *Provider) scrapeBatch(ctx context.Context, batch []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	query := strings.Join(batch, " OR ")

	var out []entity.RawCandidate
	for page := 1; page <= MaxPages; page++ {
		articles, err := p.fetchPage(ctx, query, fromDate, toDate, page)
		if err != nil {
			slog.Warn("gnews page fetch failed",
				slog.String("run_id", runID), slog.String("query", query),
				slog.Int("page", page), slog.Any("error", err))
			break
		}
		if len(articles) == 0 {
			break
		}
		for _, a := range articles {
			out = append(out, toCandidate(a))
		}
		if len(articles) < PageSize {
			break
		}
	}
	return out
}

func (p *Provider) fetchPage(ctx context.Context, query string, fromDate, toDate time.Time, page int) ([]apiArticle, error) {
	reqURL := p.buildURL(query, fromDate, toDate, page)

	release, err := p.gov.Acquire(ctx, p.cfg.BaseURL, httpclient.ProfileAPI)
	if err != nil {
		return nil, fmt.Errorf("gnews: rate acquire: %w", err)
	}
	defer release()

	body, _, err := p.client.Get(ctx, reqURL, httpclient.ProfileAPI)
	if err != nil {
		return nil, fmt.Errorf("gnews: request: %w", err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gnews: decode: %w", err)
	}
	return resp.Articles, nil
}

func (p *Provider) buildURL(query string, fromDate, toDate time.Time, page int) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("token", p.cfg.APIKey)
	v.Set("from", fromDate.Format(time.RFC3339))
	v.Set("to", toDate.Format(time.RFC3339))
	v.Set("page", strconv.Itoa(page))
	v.Set("max", strconv.Itoa(PageSize))
	if p.cfg.Lang != "" {
		v.Set("lang", p.cfg.Lang)
	}
	if p.cfg.Country != "" {
		v.Set("country", p.cfg.Country)
	}
	return p.cfg.BaseURL + "?" + v.Encode()
}

func toCandidate(a apiArticle) entity.RawCandidate {
	var publishedAt *time.Time
	confidence := entity.DateConfidenceNone
	if !a.PublishedAt.IsZero() {
		t := a.PublishedAt
		publishedAt = &t
		confidence = entity.DateConfidenceHigh
	}
	return entity.RawCandidate{
		Title:          a.Title,
		Teaser:         a.Description,
		URL:            a.URL,
		PublishedAt:    publishedAt,
		DateConfidence: confidence,
		SourceName:     a.Source.Name,
		ProviderTag:    "gnews",
	}
}

// batchKeywords groups keywords into OR-joined batches, each kept under
// maxChars (accounting for the " OR " join overhead), per §4.7.1.
func batchKeywords(keywords []string, maxChars int) [][]string {
	var batches [][]string
	var current []string
	currentLen := 0

	for _, kw := range keywords {
		addLen := len(kw)
		if currentLen > 0 {
			addLen += len(" OR ")
		}
		if currentLen+addLen > maxChars && len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentLen = 0
			addLen = len(kw)
		}
		current = append(current, kw)
		currentLen += addLen
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
