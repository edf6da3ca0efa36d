package entity

import "time"

// MaxTeaserLength bounds a stored mention's teaser, per the §3 invariant
// that full article text is never persisted (teasers only).
const MaxTeaserLength = 600

// MatchLocation names where a keyword matched within a mention.
type MatchLocation string

const (
	MatchInTitle  MatchLocation = "title"
	MatchInTeaser MatchLocation = "teaser"
)

// Mention is a persisted record of a discovered article, linked back to the
// topic and keyword(s) that matched.
type Mention struct {
	ID               int64
	BrandID          int64
	TopicID          int64
	PrimaryKeywordID int64
	PlatformID       int64
	Title            string
	Teaser           string
	NormalizedURL    string
	RawURL           string
	PublishedAt      *time.Time
	DateConfidence   DateConfidence
	ReadStatus       bool
	NotifiedStatus   bool
	DiscoveredAt     time.Time
	ScrapeRunID      string
}

// MentionKeyword is the many-to-many link between a mention and every
// keyword that matched it.
type MentionKeyword struct {
	MentionID int64
	KeywordID int64
	MatchedIn MatchLocation
	Score     int
}

// Platform caches the (normalized hostname -> platform id) mapping the
// Coordinator uses to avoid a lookup per mention (§4.11 step 6).
type Platform struct {
	ID       int64
	Hostname string
}
