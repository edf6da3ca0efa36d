package orchestrate

import (
	"context"
	"testing"
	"time"

	"mediascrape/internal/dedup"
	"mediascrape/internal/domain/entity"
	"mediascrape/internal/provider"
	"mediascrape/internal/relevance"
)

type fakeStore struct{}

func (f *fakeStore) AcquireBrandLock(ctx context.Context, brandID int64, now time.Time, staleWindow time.Duration) (*entity.Brand, bool, error) {
	return nil, false, nil
}
func (f *fakeStore) ReleaseBrandLock(ctx context.Context, brandID int64, scrapedAt time.Time) error {
	return nil
}
func (f *fakeStore) GetBrand(ctx context.Context, brandID int64) (*entity.Brand, error) {
	return nil, entity.ErrNotFound
}
func (f *fakeStore) DueBrands(ctx context.Context, now time.Time) ([]*entity.Brand, error) {
	return nil, nil
}
func (f *fakeStore) ActiveTopicsWithKeywords(ctx context.Context, brandID int64) ([]*entity.Topic, map[int64][]*entity.Keyword, error) {
	return nil, nil, nil
}
func (f *fakeStore) SourceRecipes(ctx context.Context) ([]*entity.SourceRecipe, error) {
	return nil, nil
}
func (f *fakeStore) GetMentionByURLAndTopic(ctx context.Context, normalizedURL string, topicID int64) (*entity.Mention, error) {
	return nil, entity.ErrNotFound
}
func (f *fakeStore) BatchInsertMentions(ctx context.Context, mentions []*entity.Mention) ([]int64, error) {
	return nil, nil
}
func (f *fakeStore) BatchInsertMentionKeywords(ctx context.Context, links []*entity.MentionKeyword) error {
	return nil
}
func (f *fakeStore) UpsertPlatform(ctx context.Context, hostname string) (*entity.Platform, error) {
	return nil, nil
}

type fakeProvider struct {
	name       string
	candidates []entity.RawCandidate
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Scrape(ctx context.Context, keywords []string, fromDate, toDate time.Time, runID string) []entity.RawCandidate {
	return f.candidates
}

func newDeduplicator() *dedup.Deduplicator {
	return dedup.New(dedup.DefaultConfig(), &fakeStore{})
}

func TestFetchAllMentions_MergesAcrossProvidersAndSorts(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	p1 := &fakeProvider{name: "p1", candidates: []entity.RawCandidate{
		{URL: "https://a.example.com/1", Title: "Older story", PublishedAt: &older, DateConfidence: entity.DateConfidenceHigh},
	}}
	p2 := &fakeProvider{name: "p2", candidates: []entity.RawCandidate{
		{URL: "https://b.example.com/2", Title: "Newer story", PublishedAt: &newer, DateConfidence: entity.DateConfidenceHigh},
	}}

	o := New(DefaultConfig(), []provider.Provider{p1, p2}, newDeduplicator(), relevance.Noop{})
	out := o.FetchAllMentions(context.Background(), []string{"acme"}, "Acme", older.Add(-time.Hour), newer.Add(time.Hour), "run-1")

	if len(out) != 2 {
		t.Fatalf("expected 2 merged candidates, got %d", len(out))
	}
	if out[0].Title != "Newer story" {
		t.Errorf("expected newer story sorted first, got %q", out[0].Title)
	}
}

func TestFetchAllMentions_AppliesRelevanceFilter(t *testing.T) {
	p := &fakeProvider{candidates: []entity.RawCandidate{
		{URL: "https://a.example.com/1", Title: "Keep"},
		{URL: "https://a.example.com/2", Title: "Drop"},
	}}

	scorer := dropByTitle{drop: "Drop"}
	o := New(DefaultConfig(), []provider.Provider{p}, newDeduplicator(), scorer)
	out := o.FetchAllMentions(context.Background(), []string{"acme"}, "Acme", time.Now().Add(-time.Hour), time.Now(), "run-1")

	if len(out) != 1 || out[0].Title != "Keep" {
		t.Fatalf("expected only Keep to survive relevance filter, got %v", out)
	}
}

type dropByTitle struct{ drop string }

func (d dropByTitle) ScoreKeep(ctx context.Context, in relevance.Input) (bool, error) {
	return in.Title != d.drop, nil
}

func TestCleanAndCapKeywords_DropsEmptyAndCaps(t *testing.T) {
	cfg := Config{MaxKeywordsPerRun: 2, MaxTotalURLsPerRun: MaxTotalURLsPerRun}
	o := New(cfg, nil, newDeduplicator(), relevance.Noop{})
	out := o.cleanAndCapKeywords([]string{"a", "", "b", "c"}, "run-1")
	if len(out) != 2 {
		t.Fatalf("expected keywords capped to 2, got %v", out)
	}
}

func TestCapAndSort_CapsAtMaxTotalURLs(t *testing.T) {
	cfg := Config{MaxKeywordsPerRun: MaxKeywordsPerRun, MaxTotalURLsPerRun: 1}
	o := New(cfg, nil, newDeduplicator(), relevance.Noop{})
	candidates := []entity.RawCandidate{
		{Title: "A"}, {Title: "B"},
	}
	out := o.capAndSort(candidates, "run-1")
	if len(out) != 1 {
		t.Fatalf("expected output capped to 1, got %d", len(out))
	}
}
