package searchapi

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

func TestProvider_Scrape_MergesResultsAcrossKeywords(t *testing.T) {
	recent := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kw := r.URL.Query().Get("q")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"news_results": [
			{"title": "Result for ` + kw + `", "link": "https://example.com/` + kw + `", "snippet": "s", "source": "Src", "date": "` + recent + `"}
		]}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, APIKey: "key"}, httpclient.New(), fastGovernor())
	out := p.Scrape(context.Background(), []string{"alpha", "beta"}, time.Now().Add(-24*time.Hour), time.Now(), "run-1")

	if len(out) != 2 {
		t.Fatalf("expected 2 candidates (one per keyword), got %d", len(out))
	}
}

func TestProvider_Scrape_DropsResultsMissingLinkOrTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"news_results": [{"title": "", "link": "https://example.com/x"}]}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, APIKey: "key"}, httpclient.New(), fastGovernor())
	out := p.Scrape(context.Background(), []string{"alpha"}, time.Now().Add(-24*time.Hour), time.Now(), "run-1")

	if out != nil {
		t.Errorf("expected entries without title/link to be dropped, got %v", out)
	}
}

func TestProvider_Scrape_IsolatesPerKeywordFailure(t *testing.T) {
	recent := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kw := r.URL.Query().Get("q")
		if kw == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"news_results": [{"title": "ok", "link": "https://example.com/ok", "snippet": "s", "date": "` + recent + `"}]}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, APIKey: "key"}, httpclient.New(), fastGovernor())
	out := p.Scrape(context.Background(), []string{"good", "bad"}, time.Now().Add(-24*time.Hour), time.Now(), "run-1")

	if len(out) != 1 {
		t.Fatalf("expected the good keyword's result to survive the bad keyword's failure, got %d", len(out))
	}
}
