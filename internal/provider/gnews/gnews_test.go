package gnews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mediascrape/internal/governor"
	"mediascrape/internal/infra/httpclient"
)

func fastGovernor() *governor.Governor {
	cfg := governor.DefaultConfig()
	cfg.APIRps = 1000
	return governor.New(cfg)
}

func TestProvider_Scrape_ReturnsCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"totalArticles": 1,
			"articles": [
				{"title": "Acme launches widget", "description": "teaser", "url": "https://news.example.com/a",
				 "publishedAt": "2026-07-01T00:00:00Z", "source": {"name": "Example News"}}
			]
		}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, APIKey: "key"}, httpclient.New(), fastGovernor())
	out := p.Scrape(context.Background(), []string{"Acme"}, time.Now().Add(-24*time.Hour), time.Now(), "run-1")

	if len(out) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out))
	}
	if out[0].Title != "Acme launches widget" {
		t.Errorf("unexpected title: %q", out[0].Title)
	}
	if out[0].ProviderTag != "gnews" {
		t.Errorf("expected provider tag gnews, got %q", out[0].ProviderTag)
	}
}

func TestProvider_Scrape_SkipsWhenUnconfigured(t *testing.T) {
	p := New(Config{}, httpclient.New(), fastGovernor())
	out := p.Scrape(context.Background(), []string{"Acme"}, time.Now().Add(-24*time.Hour), time.Now(), "run-1")
	if out != nil {
		t.Errorf("expected nil output when unconfigured, got %v", out)
	}
}

func TestBatchKeywords_SplitsOnCharLimit(t *testing.T) {
	keywords := []string{"aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc"}
	batches := batchKeywords(keywords, 25)
	if len(batches) < 2 {
		t.Fatalf("expected keywords to split into multiple batches, got %v", batches)
	}
	var total int
	for _, b := range batches {
		total += len(b)
	}
	if total != len(keywords) {
		t.Errorf("expected all keywords preserved across batches, got %d of %d", total, len(keywords))
	}
}

func TestProvider_Scrape_StopsAfterPageFetchError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, APIKey: "key"}, httpclient.New(), fastGovernor())
	out := p.Scrape(context.Background(), []string{"Acme"}, time.Now().Add(-24*time.Hour), time.Now(), "run-1")

	if out != nil {
		t.Errorf("expected nil candidates on persistent failure, got %v", out)
	}
}
