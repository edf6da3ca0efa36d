package repository

import (
	"context"

	"mediascrape/internal/domain/entity"
)

// SourceRecipeRepository is the Source Recipe Store (C4, §4.4): domain ->
// scraping recipe lookup with subdomain fallback, upsert, delete, and a
// full listing for discovery-capable providers (RSS/sitemap/site-search).
type SourceRecipeRepository interface {
	// GetByDomain resolves a recipe for host, trying the full host first
	// and then progressively broader parent domains (most specific to
	// broadest) down to the eTLD+1, per §4.4.
	GetByDomain(ctx context.Context, host string) (*entity.SourceRecipe, error)
	Upsert(ctx context.Context, recipe *entity.SourceRecipe) error
	Delete(ctx context.Context, domain string) error
	ListAll(ctx context.Context) ([]*entity.SourceRecipe, error)
}
