package repository

import (
	"context"
	"time"

	"mediascrape/internal/domain/entity"
)

// Store is the persistence collaborator consumed by the Scrape-Run
// Coordinator (C11) and Scheduler (C12), per §6.1. It is intentionally
// narrow: only the typed operations the scraping core actually calls.
// generated_reports CRUD lives upstream of this module and is out of
// scope.
type Store interface {
	// AcquireBrandLock attempts the conditional-update lock described in
	// §6.1: it succeeds if the brand is not currently locked, or its lock
	// is older than staleWindow. Returns the brand row and whether the
	// lock was acquired.
	AcquireBrandLock(ctx context.Context, brandID int64, now time.Time, staleWindow time.Duration) (brand *entity.Brand, acquired bool, err error)

	// GetBrand looks up a brand by ID regardless of lock state, returning
	// entity.ErrNotFound if it doesn't exist. Used by the HTTP surface to
	// distinguish a 404 (no such brand) from a 409 (brand exists but is
	// already locked) on POST /scrape/brand/{id}, since AcquireBrandLock's
	// zero-rows result alone can't tell the two apart.
	GetBrand(ctx context.Context, brandID int64) (*entity.Brand, error)
	// ReleaseBrandLock clears scrape_in_progress/scrape_started_at and
	// stamps last_scraped_at. Must be safe to call even if the lock was
	// never acquired by this process (idempotent release on cleanup
	// paths).
	ReleaseBrandLock(ctx context.Context, brandID int64, scrapedAt time.Time) error

	// DueBrands returns active brands whose last_scraped_at is null or
	// older than their effective scrape frequency, for the Scheduler's
	// hourly tick (§4.12).
	DueBrands(ctx context.Context, now time.Time) ([]*entity.Brand, error)

	// ActiveTopicsWithKeywords returns a brand's active topics, each with
	// its associated keywords, for query-building (§4.11).
	ActiveTopicsWithKeywords(ctx context.Context, brandID int64) ([]*entity.Topic, map[int64][]*entity.Keyword, error)

	// SourceRecipes exposes the Source Recipe Store's full listing to the
	// Coordinator/Orchestrator for provider wiring.
	SourceRecipes(ctx context.Context) ([]*entity.SourceRecipe, error)

	// GetMentionByURLAndTopic looks up an existing mention by its unique
	// (normalized_url, topic_id) key, used by historical dedup (§4.8).
	GetMentionByURLAndTopic(ctx context.Context, normalizedURL string, topicID int64) (*entity.Mention, error)

	// BatchInsertMentions inserts new mention rows and returns their
	// generated IDs in the same order as the input slice.
	BatchInsertMentions(ctx context.Context, mentions []*entity.Mention) ([]int64, error)

	// BatchInsertMentionKeywords links mentions to the keywords that
	// matched them, with match location and score.
	BatchInsertMentionKeywords(ctx context.Context, links []*entity.MentionKeyword) error

	// UpsertPlatform resolves or creates a Platform row for hostname,
	// backing the Coordinator's in-memory platform cache (§5) on cache
	// miss.
	UpsertPlatform(ctx context.Context, hostname string) (*entity.Platform, error)
}
