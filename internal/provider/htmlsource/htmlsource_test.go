package htmlsource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mediascrape/internal/domain/entity"
	"mediascrape/internal/governor"
	"mediascrape/internal/infra/httpclient"
)

type fakeRecipeRepo struct{ recipes []*entity.SourceRecipe }

func (f *fakeRecipeRepo) GetByDomain(ctx context.Context, domain string) (*entity.SourceRecipe, error) {
	for _, r := range f.recipes {
		if r.Domain == domain {
			return r, nil
		}
	}
	return nil, entity.ErrNotFound
}
func (f *fakeRecipeRepo) Upsert(ctx context.Context, recipe *entity.SourceRecipe) error { return nil }
func (f *fakeRecipeRepo) Delete(ctx context.Context, domain string) error               { return nil }
func (f *fakeRecipeRepo) ListAll(ctx context.Context) ([]*entity.SourceRecipe, error) {
	return f.recipes, nil
}

func fastGovernor() *governor.Governor {
	cfg := governor.DefaultConfig()
	cfg.HTMLRps = 1000
	return governor.New(cfg)
}

func articlePage() string {
	return fmt.Sprintf(`<html><head><title>t</title></head><body>
<article><h1>Acme launches new widget today</h1>
<time>%s</time>
<p>Acme Corporation announced a brand new widget this morning in a lengthy press release that goes on for quite a while describing every feature of the widget in exhaustive detail so that the extractor has enough text to clear the quality threshold comfortably, padding the body with descriptive sentences about packaging, pricing, and availability across several regions.</p>
</article>
</body></html>`, time.Now().Format(time.RFC3339))
}

func TestProvider_Scrape_SiteSearchDiscoversAndExtractsMatchingArticle(t *testing.T) {
	var mux *http.ServeMux
	var srv *httptest.Server
	mux = http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="` + srv.URL + `/news/2026/acme-widget">Acme</a></body></html>`))
	})
	mux.HandleFunc("/news/2026/acme-widget", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articlePage()))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	recipe := &entity.SourceRecipe{
		Domain:           host,
		SearchURLPattern: srv.URL + "/search?q={keyword}",
		DiscoveryType:    entity.DiscoverySiteSearch,
	}
	repo := &fakeRecipeRepo{recipes: []*entity.SourceRecipe{recipe}}

	p := New(httpclient.New(), fastGovernor(), repo)
	out := p.Scrape(context.Background(), []string{"Acme"}, time.Now().Add(-24*time.Hour), time.Now(), "run-1")

	if len(out) != 1 {
		t.Fatalf("expected 1 extracted candidate, got %d", len(out))
	}
	if out[0].MatchedKeyword != "Acme" {
		t.Errorf("expected matched keyword Acme, got %q", out[0].MatchedKeyword)
	}
}

func TestFilterArticleLike_DropsCategoryAndShallowPaths(t *testing.T) {
	in := []string{
		"https://example.com/news/2026/some-article",
		"https://example.com/category/news",
		"https://example.com/tag/acme",
		"https://example.com/about",
	}
	out := filterArticleLike(in)
	if len(out) != 1 {
		t.Fatalf("expected only the article-like link to survive, got %v", out)
	}
	if out[0] != in[0] {
		t.Errorf("unexpected survivor: %q", out[0])
	}
}

func TestProvider_Scrape_NoRecipesReturnsNil(t *testing.T) {
	repo := &fakeRecipeRepo{}
	p := New(httpclient.New(), fastGovernor(), repo)
	out := p.Scrape(context.Background(), []string{"Acme"}, time.Now().Add(-24*time.Hour), time.Now(), "run-1")
	if out != nil {
		t.Errorf("expected nil output with no recipes, got %v", out)
	}
}
