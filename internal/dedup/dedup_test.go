package dedup

import (
	"context"
	"testing"
	"time"

	"mediascrape/internal/domain/entity"
)

type fakeStore struct {
	existing map[string]*entity.Mention
}

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
	if m, ok := f.existing[normalizedURL]; ok {
		return m, nil
	}
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

func TestDedupe_ExactURL_KeepsFirstOccurrence(t *testing.T) {
	d := New(Config{FuzzyEnabled: false}, &fakeStore{})
	candidates := []entity.RawCandidate{
		{URL: "https://example.com/a?utm_source=x", Title: "First"},
		{URL: "https://example.com/a", Title: "Duplicate"},
		{URL: "https://example.com/b", Title: "Different"},
	}
	out := d.Dedupe(candidates)
	if len(out) != 2 {
		t.Fatalf("expected 2 after exact-URL dedup, got %d", len(out))
	}
	if out[0].Title != "First" {
		t.Errorf("expected first occurrence kept, got %q", out[0].Title)
	}
}

func TestDedupe_Fuzzy_MergesNearDuplicateTitlesInSameBlock(t *testing.T) {
	d := New(DefaultConfig(), &fakeStore{})
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	candidates := []entity.RawCandidate{
		{URL: "https://news.example.com/a", Title: "Acme launches new widget today", PublishedAt: &now, DateConfidence: entity.DateConfidenceHigh},
		{URL: "https://news.example.com/b", Title: "Acme launches new widget today!!", PublishedAt: &now, DateConfidence: entity.DateConfidenceMedium},
	}
	out := d.Dedupe(candidates)
	if len(out) != 1 {
		t.Fatalf("expected near-duplicates merged into 1, got %d", len(out))
	}
	if out[0].DateConfidence != entity.DateConfidenceHigh {
		t.Errorf("expected higher-confidence candidate kept, got %v", out[0].DateConfidence)
	}
}

func TestDedupe_Fuzzy_KeepsDistinctTitlesInSameBlock(t *testing.T) {
	d := New(DefaultConfig(), &fakeStore{})
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	candidates := []entity.RawCandidate{
		{URL: "https://news.example.com/a", Title: "Acme launches new widget", PublishedAt: &now},
		{URL: "https://news.example.com/b", Title: "Totally unrelated headline about cats", PublishedAt: &now},
	}
	out := d.Dedupe(candidates)
	if len(out) != 2 {
		t.Fatalf("expected distinct titles to both survive, got %d", len(out))
	}
}

func TestDedupe_Fuzzy_DatesFourDaysApartShareNoBlock(t *testing.T) {
	d := New(DefaultConfig(), &fakeStore{})
	t1 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)
	candidates := []entity.RawCandidate{
		{URL: "https://news.example.com/a", Title: "Acme launches new widget", PublishedAt: &t1},
		{URL: "https://news.example.com/b", Title: "Acme launches new widget", PublishedAt: &t2},
	}
	out := d.Dedupe(candidates)
	if len(out) != 2 {
		t.Fatalf("expected candidates far apart in time to not be blocked together, got %d", len(out))
	}
}

func TestHistoricalDedupe_DropsExistingMention(t *testing.T) {
	store := &fakeStore{existing: map[string]*entity.Mention{
		"https://example.com/a": {ID: 1},
	}}
	d := New(DefaultConfig(), store)
	candidates := []entity.RawCandidate{
		{NormalizedURL: "https://example.com/a"},
		{NormalizedURL: "https://example.com/b"},
	}
	out := d.HistoricalDedupe(context.Background(), candidates, 42)
	if len(out) != 1 || out[0].NormalizedURL != "https://example.com/b" {
		t.Fatalf("expected only the non-existing mention to survive, got %v", out)
	}
}

func TestTokenSetRatio_IdenticalStringsScoreHundred(t *testing.T) {
	if got := tokenSetRatio("Acme launches widget", "Acme launches widget"); got != 100 {
		t.Errorf("expected 100 for identical strings, got %d", got)
	}
}
