// Package entity defines the core domain objects of the scraping core:
// brands, topics, keywords, source recipes, candidates, mentions, and runs.
package entity

import "time"

// Brand is a user-owned monitoring scope. It carries its own scrape cadence
// and the lock record that serializes runs for this brand.
type Brand struct {
	ID                   int64
	OwnerID              int64
	Name                 string
	IsActive             bool
	ScrapeFrequencyHours int // default 24
	LastScrapedAt        *time.Time
	ScrapeInProgress     bool
	ScrapeStartedAt      *time.Time
	AllowedLanguages     []string // nil means "use global default"
}

// StaleLockWindow is the duration after which an in-progress lock is
// considered abandoned and reclaimable by a new run.
const StaleLockWindow = 180 * time.Minute

// LockIsStale reports whether the brand's current lock has outlived
// StaleLockWindow and can be reclaimed by a new run attempt.
func (b *Brand) LockIsStale(now time.Time) bool {
	if !b.ScrapeInProgress || b.ScrapeStartedAt == nil {
		return false
	}
	return b.ScrapeStartedAt.Before(now.Add(-StaleLockWindow))
}

// DefaultScrapeFrequencyHours is applied when a brand record omits a
// frequency, matching the "default 24" invariant in the data model.
const DefaultScrapeFrequencyHours = 24

// EffectiveFrequencyHours returns the brand's configured frequency, or the
// default when unset (zero value).
func (b *Brand) EffectiveFrequencyHours() int {
	if b.ScrapeFrequencyHours <= 0 {
		return DefaultScrapeFrequencyHours
	}
	return b.ScrapeFrequencyHours
}

// IsDue reports whether the brand should be scraped at "now", given its
// last successful run. A brand that has never run is always due.
func (b *Brand) IsDue(now time.Time) bool {
	if b.LastScrapedAt == nil {
		return true
	}
	due := b.LastScrapedAt.Add(time.Duration(b.EffectiveFrequencyHours()) * time.Hour)
	return !now.Before(due)
}
