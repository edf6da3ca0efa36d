// Package searchapi implements the Search-API Provider (§4.7.2): a
// SerpAPI-like news-results search, queried one keyword at a time in
// parallel under the Rate Governor.
package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"mediascrape/internal/domain/entity"
	"mediascrape/internal/extract/dateresolve"
	"mediascrape/internal/governor"
	"mediascrape/internal/infra/httpclient"
)

// MaxConcurrentQueries bounds how many single-keyword queries run in
// parallel; the Rate Governor still enforces the per-domain rps ceiling
// underneath this.
const MaxConcurrentQueries = 5

type Config struct {
	BaseURL string // e.g. "https://serpapi.com/search"
	APIKey  string
}

type Provider struct {
	cfg    Config
	client *httpclient.Client
	gov    *governor.Governor
}

func New(cfg Config, client *httpclient.Client, gov *governor.Governor) *Provider {
	return &Provider{cfg: cfg, client: client, gov: gov}
}

func (p *Provider) Name() string { return "searchapi" }

type apiResponse struct {
	NewsResults []newsResult `json:"news_results"`
}

type newsResult struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Snippet string `json:"snippet"`
	Source string `json:"source"`
	Date  string `json:"date"`
}

// Scrape runs one query per keyword, concurrently, under the Rate
// Governor, and merges whatever results came back (§4.7.5: a single
// keyword's failure never drops the others).
func (p *Provider) Scrape(ctx context.Context, keywords []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	if p.cfg.BaseURL == "" || p.cfg.APIKey == "" {
		slog.Warn("searchapi provider not configured, skipping", slog.String("run_id", runID))
		return nil
	}

	results := make([][]entity.RawCandidate, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentQueries)

	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			candidates, err := p.scrapeKeyword(gctx, kw, fromDate, toDate)
			if err != nil {
				slog.Warn("searchapi query failed",
					slog.String("run_id", runID), slog.String("keyword", kw), slog.Any("error", err))
				return nil // isolate per-keyword failures, never fail the group
			}
			results[i] = candidates
			return nil
		})
	}
	_ = g.Wait()

	var out []entity.RawCandidate
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (p *Provider) scrapeKeyword(ctx context.Context, keyword string, fromDate, toDate time.Time) ([]entity.RawCandidate, error) {
	release, err := p.gov.Acquire(ctx, p.cfg.BaseURL, httpclient.ProfileAPI)
	if err != nil {
		return nil, fmt.Errorf("searchapi: rate acquire: %w", err)
	}
	defer release()

	v := url.Values{}
	v.Set("q", keyword)
	v.Set("api_key", p.cfg.APIKey)
	v.Set("tbm", "nws")
	reqURL := p.cfg.BaseURL + "?" + v.Encode()

	body, _, err := p.client.Get(ctx, reqURL, httpclient.ProfileAPI)
	if err != nil {
		return nil, fmt.Errorf("searchapi: request: %w", err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("searchapi: decode: %w", err)
	}

	var out []entity.RawCandidate
	for _, r := range resp.NewsResults {
		// discard entries missing a link or title, per §4.7.2
		if r.Link == "" || r.Title == "" {
			continue
		}
		dateParsed, confidence, _ := dateresolve.Resolve(dateresolve.Inputs{dateresolve.SourceFreeText: r.Date})
		candidate := entity.RawCandidate{
			Title:          r.Title,
			Teaser:         r.Snippet,
			URL:            r.Link,
			PublishedAt:    dateParsed,
			DateConfidence: confidence,
			SourceName:     r.Source,
			ProviderTag:    "searchapi",
			MatchedKeyword: keyword,
		}
		if !dateresolve.PassesCutoff(&candidate, fromDate) {
			continue
		}
		if candidate.PublishedAt != nil && candidate.PublishedAt.After(toDate) {
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}
