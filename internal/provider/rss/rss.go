// Package rss implements the RSS Provider (§4.7.3): a known set of feeds,
// fetched with ETag/If-Modified-Since caching and deduplicated within each
// feed. Scrape fetches only the static seed list (Config.SeedFeeds);
// recipe RSS URLs (SourceRecipe.RSSURLs) are not loaded by this package.
//
// Grounded on the teacher's RSSFetcher (gofeed-based parsing); caching and
// within-feed dedup are this module's own addition, since the teacher
// fetches every feed unconditionally on every poll.
package rss

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"mediascrape/internal/domain/entity"
	"mediascrape/internal/domain/urlutil"
	"mediascrape/internal/governor"
	"mediascrape/internal/infra/httpclient"
)

// Config carries the provider's static feed seed list, the only feeds
// Scrape fetches; any other feed list is passed to ScrapeFeeds directly.
type Config struct {
	SeedFeeds []string
}

type Provider struct {
	cfg    Config
	client *httpclient.Client
	gov    *governor.Governor

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	ETag         string
	LastModified string
}

func New(cfg Config, client *httpclient.Client, gov *governor.Governor) *Provider {
	return &Provider{cfg: cfg, client: client, gov: gov, cache: make(map[string]cacheEntry)}
}

func (p *Provider) Name() string { return "rss" }

// feedURLs returns the provider's static seed feeds. The shared Provider
// interface carries no feed list, so Scrape cannot include recipe feeds;
// only ScrapeFeeds accepts an explicit list.
func (p *Provider) feedURLs() []string { return p.cfg.SeedFeeds }

// Scrape fetches every configured feed and returns items within
// [fromDate, toDate] whose title or teaser matches one of keywords
// word-boundary, case-insensitively — RSS feeds can't be queried
// server-side, so keyword matching happens locally (mirrors §4.7.4's
// keyword-match step for the Configurable HTML provider).
func (p *Provider) Scrape(ctx context.Context, keywords []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	return p.ScrapeFeeds(ctx, p.feedURLs(), keywords, fromDate, toDate, runID)
}

// ScrapeFeeds is Scrape parameterized over an explicit feed list. Within
// this module its only caller is Scrape, which passes the seed list.
func (p *Provider) ScrapeFeeds(ctx context.Context, feedURLs []string, keywords []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	var out []entity.RawCandidate
	for _, feedURL := range feedURLs {
		items, bozo := p.fetchFeed(ctx, feedURL)
		if bozo {
			slog.Warn("rss feed parse failed", slog.String("run_id", runID), slog.String("feed", feedURL))
			continue
		}
		out = append(out, filterByWindowAndKeywords(dedupFeedItems(items), keywords, fromDate, toDate)...)
	}
	return out
}

type feedItem struct {
	GUID        string
	Link        string
	Title       string
	Description string
	PublishedAt *time.Time
}

// fetchFeed fetches and parses a single feed, honoring the cached
// ETag/Last-Modified. bozo reports true on a hard parse/transport
// failure (the feed is skipped as a quality signal, per §4.7.3).
func (p *Provider) fetchFeed(ctx context.Context, feedURL string) ([]feedItem, bool) {
	release, err := p.gov.Acquire(ctx, feedURL, httpclient.ProfileRSS)
	if err != nil {
		return nil, true
	}
	defer release()

	p.cacheMu.Lock()
	cached := p.cache[feedURL]
	p.cacheMu.Unlock()

	result, err := p.client.GetConditional(ctx, feedURL, httpclient.ProfileRSS, cached.ETag, cached.LastModified)
	if err != nil {
		return nil, true
	}
	if result.NotModified {
		return nil, false
	}

	p.cacheMu.Lock()
	p.cache[feedURL] = cacheEntry{ETag: result.ETag, LastModified: result.LastModified}
	p.cacheMu.Unlock()

	fp := gofeed.NewParser()
	feed, err := fp.ParseString(string(result.Body))
	if err != nil {
		return nil, true
	}

	items := make([]feedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		fi := feedItem{GUID: it.GUID, Link: it.Link, Title: it.Title, Description: it.Description}
		if it.PublishedParsed != nil {
			fi.PublishedAt = it.PublishedParsed
		}
		items = append(items, fi)
	}
	return items, false
}

// dedupFeedItems removes duplicates within a single feed by (guid OR
// link, normalized title), per §4.7.3.
func dedupFeedItems(items []feedItem) []feedItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]feedItem, 0, len(items))
	for _, it := range items {
		key := it.GUID
		if key == "" {
			key = it.Link
		}
		key += "|" + normalizeTitle(it.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func filterByWindowAndKeywords(items []feedItem, keywords []string, fromDate, toDate time.Time) []entity.RawCandidate {
	var out []entity.RawCandidate
	for _, it := range items {
		if it.PublishedAt != nil {
			if it.PublishedAt.Before(fromDate) || it.PublishedAt.After(toDate) {
				continue
			}
		}

		matched := matchedKeyword(it.Title+" "+it.Description, keywords)
		if matched == "" {
			continue
		}

		confidence := entity.DateConfidenceNone
		if it.PublishedAt != nil {
			confidence = entity.DateConfidenceHigh
		}
		out = append(out, entity.RawCandidate{
			Title:          it.Title,
			Teaser:         it.Description,
			URL:            it.Link,
			PublishedAt:    it.PublishedAt,
			DateConfidence: confidence,
			ProviderTag:    "rss",
			MatchedKeyword: matched,
		})
	}
	return out
}

func matchedKeyword(haystack string, keywords []string) string {
	for _, kw := range keywords {
		if urlutil.ContainsWordBoundary(haystack, kw) {
			return kw
		}
	}
	return ""
}
