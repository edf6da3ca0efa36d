// Package htmlsource implements the Configurable HTML Provider (§4.7.4):
// per-recipe discovery (site-search URL substitution, sitemap, or RSS),
// article-like link filtering, extraction, and a local keyword-match gate.
//
// Grounded on the teacher's WebflowScraper (goquery-based fetch+parse) for
// the discovery/fetch shape; extraction is delegated to the shared
// Extractor (C5) rather than WebflowScraper's own CSS-selector item
// extraction, since recipes here describe whole-article pages, not list
// items.
package htmlsource

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mediascrape/internal/domain/entity"
	"mediascrape/internal/domain/urlutil"
	"mediascrape/internal/extract"
	"mediascrape/internal/extract/dateresolve"
	"mediascrape/internal/governor"
	"mediascrape/internal/infra/browserfetch"
	"mediascrape/internal/infra/httpclient"
	"mediascrape/internal/repository"
)

// MaxDiscoveredLinksPerRecipe bounds how many article-like links a single
// recipe's discovery step will hand to the Extractor, so one
// misconfigured sitemap can't balloon a run.
const MaxDiscoveredLinksPerRecipe = 50

type Provider struct {
	client    *httpclient.Client
	gov       *governor.Governor
	extractor *extract.Extractor
	recipes   repository.SourceRecipeRepository
}

func New(client *httpclient.Client, gov *governor.Governor, recipes repository.SourceRecipeRepository) *Provider {
	return &Provider{client: client, gov: gov, extractor: extract.New(), recipes: recipes}
}

func (p *Provider) Name() string { return "htmlsource" }

// Scrape discovers candidate article URLs from every matching recipe, runs
// each through the Extractor, and keeps only results whose matched
// keyword appears in the title or teaser (§4.7.4 step 3).
func (p *Provider) Scrape(ctx context.Context, keywords []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	recipes, err := p.recipes.ListAll(ctx)
	if err != nil {
		slog.Warn("htmlsource: listing recipes failed", slog.String("run_id", runID), slog.Any("error", err))
		return nil
	}

	var out []entity.RawCandidate
	for _, recipe := range recipes {
		out = append(out, p.scrapeRecipe(ctx, recipe, keywords, fromDate, toDate, runID)...)
	}
	return out
}

func (p *Provider) scrapeRecipe(ctx context.Context, recipe *entity.SourceRecipe, keywords []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	links := p.discover(ctx, recipe, keywords, runID)

	var out []entity.RawCandidate
	budget := MaxDiscoveredLinksPerRecipe
	for keyword, urls := range links {
		for _, articleURL := range urls {
			if budget == 0 {
				return out
			}
			budget--
			candidate, ok := p.extractArticle(ctx, recipe, articleURL, keyword, fromDate, toDate, runID)
			if ok {
				out = append(out, candidate)
			}
		}
	}
	return out
}

// discover returns, per matched keyword, the article-like URLs found via
// the recipe's declared discovery_type.
func (p *Provider) discover(ctx context.Context, recipe *entity.SourceRecipe, keywords []string, runID string) map[string][]string {
	links := make(map[string][]string)

	switch recipe.DiscoveryType {
	case entity.DiscoverySiteSearch:
		if !recipe.SupportsSiteSearch() {
			return links
		}
		for _, kw := range keywords {
			searchURL := strings.Replace(recipe.SearchURLPattern, "{keyword}", url.QueryEscape(kw), 1)
			found := p.fetchAndFilterLinks(ctx, recipe.Domain, searchURL, runID)
			links[kw] = found
		}
	case entity.DiscoverySitemap:
		if recipe.SitemapURL == "" {
			return links
		}
		urls := p.fetchSitemap(ctx, recipe.Domain, recipe.SitemapURL, runID)
		articleLike := filterArticleLike(urls)
		for _, kw := range keywords {
			links[kw] = articleLike
		}
	case entity.DiscoveryRSS:
		// RSS discovery is not performed here, and the rss provider's
		// Scrape reads only its seed list, not SourceRecipe.RSSURLs.
		return links
	default:
		return links
	}
	return links
}

func (p *Provider) fetchAndFilterLinks(ctx context.Context, domain, pageURL, runID string) []string {
	body, err := p.fetchHTML(ctx, domain, pageURL, runID)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(pageURL)

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		resolved := resolveHref(base, href)
		if resolved != "" {
			hrefs = append(hrefs, resolved)
		}
	})
	return filterArticleLike(hrefs)
}

func (p *Provider) fetchSitemap(ctx context.Context, domain, sitemapURL, runID string) []string {
	body, err := p.fetchHTML(ctx, domain, sitemapURL, runID)
	if err != nil {
		return nil
	}

	var parsed sitemapXML
	if err := xml.Unmarshal(body, &parsed); err != nil {
		slog.Warn("htmlsource: sitemap parse failed",
			slog.String("run_id", runID), slog.String("sitemap", sitemapURL), slog.Any("error", err))
		return nil
	}
	urls := make([]string, 0, len(parsed.URLs))
	for _, u := range parsed.URLs {
		urls = append(urls, u.Loc)
	}
	return urls
}

type sitemapXML struct {
	XMLName xml.Name    `xml:"urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

func (p *Provider) fetchHTML(ctx context.Context, domain, target, runID string) ([]byte, error) {
	release, err := p.gov.Acquire(ctx, domain, httpclient.ProfileHTML)
	if err != nil {
		return nil, fmt.Errorf("htmlsource: rate acquire: %w", err)
	}
	defer release()

	body, _, err := p.client.Get(ctx, target, httpclient.ProfileHTML)
	if err != nil {
		slog.Warn("htmlsource: fetch failed",
			slog.String("run_id", runID), slog.String("url", target), slog.Any("error", err))
		return nil, err
	}
	return body, nil
}

func (p *Provider) extractArticle(ctx context.Context, recipe *entity.SourceRecipe, articleURL, keyword string, fromDate, toDate time.Time, runID string) (entity.RawCandidate, bool) {
	result := p.runExtractor(ctx, recipe, articleURL, runID)
	if result == nil {
		result = p.extractViaBrowser(ctx, recipe, articleURL, runID)
	}
	if result == nil {
		return entity.RawCandidate{}, false
	}

	haystack := result.Title + " " + result.ContentTeaser
	if !urlutil.ContainsWordBoundary(haystack, keyword) {
		return entity.RawCandidate{}, false
	}

	candidate := entity.RawCandidate{
		Title:          result.Title,
		Teaser:         result.ContentTeaser,
		URL:            articleURL,
		PublishedAt:    result.DateParsed,
		DateConfidence: result.DateConfidence,
		ProviderTag:    "htmlsource",
		MatchedKeyword: keyword,
	}
	if !dateresolve.PassesCutoff(&candidate, fromDate) {
		return entity.RawCandidate{}, false
	}
	if candidate.PublishedAt != nil && candidate.PublishedAt.After(toDate) {
		return entity.RawCandidate{}, false
	}
	return candidate, true
}

// runExtractor fetches articleURL over plain HTTP and runs it through the
// Extractor, under the Rate Governor's circuit breaker.
func (p *Provider) runExtractor(ctx context.Context, recipe *entity.SourceRecipe, articleURL, runID string) *extract.Result {
	body, err := p.fetchHTML(ctx, recipe.Domain, articleURL, runID)
	if err != nil {
		return nil
	}

	var result *extract.Result
	guardErr := p.gov.Guard(recipe.Domain, func() (bool, error) {
		r, err := p.extractor.Extract(extract.Input{HTML: body, Recipe: recipe, URL: articleURL})
		if err != nil {
			return false, nil
		}
		result = r
		return true, nil
	})
	if guardErr != nil {
		return nil
	}
	return result
}

// extractViaBrowser is the §4.5 step 3 fallback: when the plain-HTTP fetch
// gave the Extractor nothing usable — most often a client-rendered article
// body — render the page in a fingerprint-spoofed headless Chrome and try
// extraction again on the rendered HTML.
func (p *Provider) extractViaBrowser(ctx context.Context, recipe *entity.SourceRecipe, articleURL, runID string) *extract.Result {
	release, err := p.gov.Acquire(ctx, recipe.Domain, httpclient.ProfileHTML)
	if err != nil {
		return nil
	}
	defer release()

	var result *extract.Result
	guardErr := p.gov.Guard(recipe.Domain, func() (bool, error) {
		body, err := browserfetch.Fetch(ctx, articleURL)
		if err != nil {
			slog.Warn("htmlsource: browser fetch failed",
				slog.String("run_id", runID), slog.String("url", articleURL), slog.Any("error", err))
			return false, nil
		}
		r, err := p.extractor.Extract(extract.Input{HTML: body, Recipe: recipe, URL: articleURL})
		if err != nil {
			return false, nil
		}
		result = r
		return true, nil
	})
	if guardErr != nil {
		return nil
	}
	return result
}

// filterArticleLike keeps links whose path has at least two segments and
// doesn't look like a bare category/tag/index page, per §4.7.4 step 1.
func filterArticleLike(rawURLs []string) []string {
	seen := make(map[string]struct{}, len(rawURLs))
	var out []string
	for _, raw := range rawURLs {
		if raw == "" {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		segments := pathSegments(u.Path)
		if len(segments) < 2 {
			continue
		}
		if isCategoryLike(segments) {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}
	return out
}

func pathSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

var categoryMarkers = []string{"category", "categories", "tag", "tags", "topics", "topic", "page", "author"}

func isCategoryLike(segments []string) bool {
	last := strings.ToLower(segments[len(segments)-1])
	for _, m := range categoryMarkers {
		if segments[0] == m || last == m {
			return true
		}
	}
	return false
}

func resolveHref(base *url.URL, href string) string {
	if base == nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
