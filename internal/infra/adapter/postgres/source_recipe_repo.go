package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"mediascrape/internal/domain/entity"
	"mediascrape/internal/domain/urlutil"
	"mediascrape/internal/repository"
)

// SourceRecipeRepo is the postgres-backed Source Recipe Store (C4).
// Grounded on the teacher's SourceRepo: a thin struct over *sql.DB, plain
// SQL strings, JSON-marshaled nested config.
type SourceRecipeRepo struct{ db *sql.DB }

func NewSourceRecipeRepo(db *sql.DB) repository.SourceRecipeRepository {
	return &SourceRecipeRepo{db: db}
}

func scanSourceRecipe(row interface {
	Scan(dest ...any) error
}) (*entity.SourceRecipe, error) {
	var r entity.SourceRecipe
	var rssURLsJSON []byte
	if err := row.Scan(
		&r.Domain, &r.SearchURLPattern, &r.TitleSelector, &r.ContentSelector,
		&r.DateSelector, &rssURLsJSON, &r.SitemapURL, &r.DiscoveryType,
	); err != nil {
		return nil, err
	}
	if len(rssURLsJSON) > 0 {
		if err := json.Unmarshal(rssURLsJSON, &r.RSSURLs); err != nil {
			return nil, fmt.Errorf("unmarshal rss_urls: %w", err)
		}
	}
	return &r, nil
}

const recipeColumns = `domain, search_url_pattern, title_selector, content_selector, date_selector, rss_urls, sitemap_url, discovery_type`

// GetByDomain tries host, then each broader parent domain down to eTLD+1,
// returning the first recipe found (§4.4's "most specific -> broader"
// fallback).
func (repo *SourceRecipeRepo) GetByDomain(ctx context.Context, host string) (*entity.SourceRecipe, error) {
	query := fmt.Sprintf(`SELECT %s FROM source_recipes WHERE domain = $1 LIMIT 1`, recipeColumns)

	for _, candidate := range urlutil.DomainFallbackChain(host) {
		row := repo.db.QueryRowContext(ctx, query, candidate)
		recipe, err := scanSourceRecipe(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("GetByDomain: %w", err)
		}
		return recipe, nil
	}
	return nil, entity.ErrNotFound
}

func (repo *SourceRecipeRepo) Upsert(ctx context.Context, recipe *entity.SourceRecipe) error {
	rssURLsJSON, err := json.Marshal(recipe.RSSURLs)
	if err != nil {
		return fmt.Errorf("Upsert: marshal rss_urls: %w", err)
	}

	const query = `
INSERT INTO source_recipes (domain, search_url_pattern, title_selector, content_selector, date_selector, rss_urls, sitemap_url, discovery_type)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (domain) DO UPDATE SET
       search_url_pattern = EXCLUDED.search_url_pattern,
       title_selector      = EXCLUDED.title_selector,
       content_selector    = EXCLUDED.content_selector,
       date_selector       = EXCLUDED.date_selector,
       rss_urls            = EXCLUDED.rss_urls,
       sitemap_url         = EXCLUDED.sitemap_url,
       discovery_type      = EXCLUDED.discovery_type`
	_, err = repo.db.ExecContext(ctx, query,
		recipe.Domain, recipe.SearchURLPattern, recipe.TitleSelector, recipe.ContentSelector,
		recipe.DateSelector, rssURLsJSON, recipe.SitemapURL, recipe.DiscoveryType,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *SourceRecipeRepo) Delete(ctx context.Context, domain string) error {
	const query = `DELETE FROM source_recipes WHERE domain = $1`
	res, err := repo.db.ExecContext(ctx, query, domain)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *SourceRecipeRepo) ListAll(ctx context.Context) ([]*entity.SourceRecipe, error) {
	query := fmt.Sprintf(`SELECT %s FROM source_recipes ORDER BY domain ASC`, recipeColumns)
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	recipes := make([]*entity.SourceRecipe, 0, 64)
	for rows.Next() {
		recipe, err := scanSourceRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAll: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}
