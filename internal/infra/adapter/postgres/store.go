package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediascrape/internal/domain/entity"
	"mediascrape/internal/repository"
)

// Store is the postgres-backed implementation of repository.Store (§6.1).
// Grounded on the teacher's per-entity Repo structs, collapsed into one
// struct since the Coordinator/Scheduler consume it as a single
// collaborator rather than per-entity repositories.
type Store struct {
	db      *sql.DB
	recipes repository.SourceRecipeRepository
}

func NewStore(db *sql.DB) repository.Store {
	return &Store{db: db, recipes: NewSourceRecipeRepo(db)}
}

// AcquireBrandLock implements the conditional-update lock from §6.1: the
// UPDATE only succeeds if the brand is unlocked, or its lock is older than
// staleWindow.
func (s *Store) AcquireBrandLock(ctx context.Context, brandID int64, now time.Time, staleWindow time.Duration) (*entity.Brand, bool, error) {
	const query = `
UPDATE brands
SET scrape_in_progress = TRUE, scrape_started_at = $2
WHERE id = $1
  AND (scrape_in_progress = FALSE OR scrape_started_at < $3)
RETURNING id, owner_id, name, is_active, scrape_frequency_hours, last_scraped_at, scrape_in_progress, scrape_started_at, allowed_languages`

	staleBefore := now.Add(-staleWindow)
	row := s.db.QueryRowContext(ctx, query, brandID, now, staleBefore)

	var b entity.Brand
	var languages []string
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.IsActive, &b.ScrapeFrequencyHours,
		&b.LastScrapedAt, &b.ScrapeInProgress, &b.ScrapeStartedAt, pqStringArray(&languages))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("AcquireBrandLock: %w", err)
	}
	b.AllowedLanguages = languages
	return &b, true, nil
}

// ReleaseBrandLock clears the in-progress flag and stamps last_scraped_at,
// unconditionally (idempotent: safe even if the lock row changed under us).
func (s *Store) ReleaseBrandLock(ctx context.Context, brandID int64, scrapedAt time.Time) error {
	const query = `
UPDATE brands
SET scrape_in_progress = FALSE, scrape_started_at = NULL, last_scraped_at = $2
WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, brandID, scrapedAt)
	if err != nil {
		return fmt.Errorf("ReleaseBrandLock: %w", err)
	}
	return nil
}

// GetBrand looks up a brand by ID regardless of its lock state, for the
// HTTP surface's 404-vs-409 distinction on POST /scrape/brand/{id}.
func (s *Store) GetBrand(ctx context.Context, brandID int64) (*entity.Brand, error) {
	const query = `
SELECT id, owner_id, name, is_active, scrape_frequency_hours, last_scraped_at, scrape_in_progress, scrape_started_at, allowed_languages
FROM brands
WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, brandID)

	var b entity.Brand
	var languages []string
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.IsActive, &b.ScrapeFrequencyHours,
		&b.LastScrapedAt, &b.ScrapeInProgress, &b.ScrapeStartedAt, pqStringArray(&languages))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetBrand: %w", err)
	}
	b.AllowedLanguages = languages
	return &b, nil
}

// DueBrands returns active brands whose last_scraped_at is null or older
// than their effective frequency, for the Scheduler's hourly tick (§4.12).
// The frequency comparison mirrors entity.Brand.IsDue but is pushed into
// SQL so the candidate set is bounded before fetching.
func (s *Store) DueBrands(ctx context.Context, now time.Time) ([]*entity.Brand, error) {
	const query = `
SELECT id, owner_id, name, is_active, scrape_frequency_hours, last_scraped_at, scrape_in_progress, scrape_started_at, allowed_languages
FROM brands
WHERE is_active = TRUE
  AND (
        last_scraped_at IS NULL
        OR last_scraped_at + (COALESCE(NULLIF(scrape_frequency_hours, 0), 24) || ' hours')::interval <= $1
      )
ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("DueBrands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	brands := make([]*entity.Brand, 0, 32)
	for rows.Next() {
		var b entity.Brand
		var languages []string
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.IsActive, &b.ScrapeFrequencyHours,
			&b.LastScrapedAt, &b.ScrapeInProgress, &b.ScrapeStartedAt, pqStringArray(&languages)); err != nil {
			return nil, fmt.Errorf("DueBrands: scan: %w", err)
		}
		b.AllowedLanguages = languages
		brands = append(brands, &b)
	}
	return brands, rows.Err()
}

// ActiveTopicsWithKeywords returns a brand's active topics with their
// keywords grouped by topic ID.
func (s *Store) ActiveTopicsWithKeywords(ctx context.Context, brandID int64) ([]*entity.Topic, map[int64][]*entity.Keyword, error) {
	const topicQuery = `
SELECT id, brand_id, name, is_active, query_template, updated_at
FROM topics
WHERE brand_id = $1 AND is_active = TRUE
ORDER BY updated_at DESC`
	rows, err := s.db.QueryContext(ctx, topicQuery, brandID)
	if err != nil {
		return nil, nil, fmt.Errorf("ActiveTopicsWithKeywords: topics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var topics []*entity.Topic
	var ids []int64
	for rows.Next() {
		var t entity.Topic
		if err := rows.Scan(&t.ID, &t.BrandID, &t.Name, &t.IsActive, &t.QueryTemplate, &t.UpdatedAt); err != nil {
			return nil, nil, fmt.Errorf("ActiveTopicsWithKeywords: scan topic: %w", err)
		}
		topics = append(topics, &t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(ids) == 0 {
		return topics, map[int64][]*entity.Keyword{}, nil
	}

	keywordsByTopic := make(map[int64][]*entity.Keyword, len(ids))
	const keywordQuery = `SELECT id, topic_id, term FROM keywords WHERE topic_id = ANY($1::bigint[])`
	krows, err := s.db.QueryContext(ctx, keywordQuery, pqInt64Array(ids))
	if err != nil {
		return nil, nil, fmt.Errorf("ActiveTopicsWithKeywords: keywords: %w", err)
	}
	defer func() { _ = krows.Close() }()
	for krows.Next() {
		var k entity.Keyword
		if err := krows.Scan(&k.ID, &k.TopicID, &k.Term); err != nil {
			return nil, nil, fmt.Errorf("ActiveTopicsWithKeywords: scan keyword: %w", err)
		}
		keywordsByTopic[k.TopicID] = append(keywordsByTopic[k.TopicID], &k)
	}
	return topics, keywordsByTopic, krows.Err()
}

func (s *Store) SourceRecipes(ctx context.Context) ([]*entity.SourceRecipe, error) {
	return s.recipes.ListAll(ctx)
}

func (s *Store) GetMentionByURLAndTopic(ctx context.Context, normalizedURL string, topicID int64) (*entity.Mention, error) {
	const query = `
SELECT id, brand_id, topic_id, primary_keyword_id, platform_id, title, teaser, normalized_url, raw_url,
       published_at, date_confidence, read_status, notified_status, discovered_at, scrape_run_id
FROM mentions
WHERE normalized_url = $1 AND topic_id = $2
LIMIT 1`
	var m entity.Mention
	err := s.db.QueryRowContext(ctx, query, normalizedURL, topicID).Scan(
		&m.ID, &m.BrandID, &m.TopicID, &m.PrimaryKeywordID, &m.PlatformID, &m.Title, &m.Teaser,
		&m.NormalizedURL, &m.RawURL, &m.PublishedAt, &m.DateConfidence, &m.ReadStatus, &m.NotifiedStatus,
		&m.DiscoveredAt, &m.ScrapeRunID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetMentionByURLAndTopic: %w", err)
	}
	return &m, nil
}

// BatchInsertMentions inserts each mention and returns the row ID for each
// one, in input order — either the newly generated ID, or, on a
// (normalized_url, topic_id) conflict with an already-persisted mention
// from an earlier run, the existing row's ID. Grounded on the teacher's
// multi-row insert style, executed as individual statements inside one
// transaction rather than a single multi-VALUES statement, since we need
// each resolved ID back in order.
func (s *Store) BatchInsertMentions(ctx context.Context, mentions []*entity.Mention) ([]int64, error) {
	if len(mentions) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BatchInsertMentions: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertQuery = `
INSERT INTO mentions (brand_id, topic_id, primary_keyword_id, platform_id, title, teaser, normalized_url, raw_url,
                       published_at, date_confidence, read_status, notified_status, discovered_at, scrape_run_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (normalized_url, topic_id) DO NOTHING
RETURNING id`

	const existingQuery = `SELECT id FROM mentions WHERE normalized_url = $1 AND topic_id = $2`

	ids := make([]int64, len(mentions))
	for i, m := range mentions {
		var id int64
		err := tx.QueryRowContext(ctx, insertQuery,
			m.BrandID, m.TopicID, m.PrimaryKeywordID, m.PlatformID, m.Title, m.Teaser,
			m.NormalizedURL, m.RawURL, m.PublishedAt, m.DateConfidence, m.ReadStatus, m.NotifiedStatus,
			m.DiscoveredAt, m.ScrapeRunID,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			// ON CONFLICT DO NOTHING skipped the insert; the row already
			// exists from a prior run, so look its ID up directly, same
			// pattern as GetMentionByURLAndTopic.
			if err := tx.QueryRowContext(ctx, existingQuery, m.NormalizedURL, m.TopicID).Scan(&id); err != nil {
				return nil, fmt.Errorf("BatchInsertMentions: row %d: lookup existing: %w", i, err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("BatchInsertMentions: row %d: %w", i, err)
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("BatchInsertMentions: commit: %w", err)
	}
	return ids, nil
}

func (s *Store) BatchInsertMentionKeywords(ctx context.Context, links []*entity.MentionKeyword) error {
	if len(links) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("BatchInsertMentionKeywords: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO mention_keywords (mention_id, keyword_id, matched_in, score)
VALUES ($1, $2, $3, $4)
ON CONFLICT (mention_id, keyword_id) DO NOTHING`
	for _, l := range links {
		if _, err := tx.ExecContext(ctx, query, l.MentionID, l.KeywordID, l.MatchedIn, l.Score); err != nil {
			return fmt.Errorf("BatchInsertMentionKeywords: %w", err)
		}
	}
	return tx.Commit()
}

// UpsertPlatform resolves or creates a platform row by hostname.
func (s *Store) UpsertPlatform(ctx context.Context, hostname string) (*entity.Platform, error) {
	const query = `
INSERT INTO platforms (hostname)
VALUES ($1)
ON CONFLICT (hostname) DO UPDATE SET hostname = EXCLUDED.hostname
RETURNING id, hostname`
	var p entity.Platform
	err := s.db.QueryRowContext(ctx, query, hostname).Scan(&p.ID, &p.Hostname)
	if err != nil {
		return nil, fmt.Errorf("UpsertPlatform: %w", err)
	}
	return &p, nil
}

// pqStringArray returns a scanner that parses a postgres array literal
// into a Go []string, and pqInt64Array renders a Go []int64 as an array
// literal, without pulling in the lib/pq array helper types, since the
// rest of the stack already standardized on the pgx stdlib driver.
func pqStringArray(dest *[]string) *stringArrayScanner {
	return &stringArrayScanner{dest: dest}
}

type stringArrayScanner struct{ dest *[]string }

func (s *stringArrayScanner) Scan(src any) error {
	*s.dest = nil
	if src == nil {
		return nil
	}
	raw, ok := src.(string)
	if !ok {
		if b, ok := src.([]byte); ok {
			raw = string(b)
		} else {
			return fmt.Errorf("stringArrayScanner: unsupported type %T", src)
		}
	}
	raw = strings.Trim(raw, "{}")
	if raw == "" {
		return nil
	}
	*s.dest = strings.Split(raw, ",")
	return nil
}

func pqInt64Array(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
