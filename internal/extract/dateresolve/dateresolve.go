// Package dateresolve implements the Date Resolver (C6, §4.6): free-form
// date parsing with a source-priority ordering and a confidence grade,
// plus the from_date cutoff filter applied to resolved candidates.
//
// Grounded on araddon/dateparse, one of the domain libraries carried over
// from the broader example pack (not used by the teacher itself, which
// has no date-resolution concern of its own).
package dateresolve

import (
	"time"

	"github.com/araddon/dateparse"

	"mediascrape/internal/domain/entity"
)

// Source names where a raw date string came from. Order matters: Resolve
// walks sources from highest to lowest priority per §4.6.
type Source int

const (
	SourceRSS Source = iota
	SourceStructuredData
	SourceDateSelector
	SourceFreeText
)

// priorityOrder is the §4.6 priority list, highest first: "RSS
// published/updated -> embedded structured-data datePublished -> explicit
// date_selector match -> free-text in article body."
var priorityOrder = []Source{SourceRSS, SourceStructuredData, SourceDateSelector, SourceFreeText}

// Inputs carries the raw date string found (if any) for each source, keyed
// by Source.
type Inputs map[Source]string

// Resolve walks inputs in priority order and returns the first one that
// parses, along with its confidence grade and the raw string that
// produced it. It never fills a missing date with "now" (§4.6).
func Resolve(inputs Inputs) (parsed *time.Time, confidence entity.DateConfidence, raw string) {
	for _, source := range priorityOrder {
		candidate, ok := inputs[source]
		if !ok || candidate == "" {
			continue
		}
		t, err := dateparse.ParseAny(candidate)
		if err != nil {
			continue
		}
		return &t, confidenceFor(source), candidate
	}
	return nil, entity.DateConfidenceNone, ""
}

func confidenceFor(source Source) entity.DateConfidence {
	switch source {
	case SourceRSS, SourceStructuredData:
		return entity.DateConfidenceHigh
	case SourceDateSelector:
		return entity.DateConfidenceMedium
	default:
		return entity.DateConfidenceLow
	}
}

// PassesCutoff applies §4.6's cutoff filter: candidates older than fromDate
// are dropped; candidates with no resolved date (none/low confidence,
// published_at left null) survive only if their provider supplies an
// authoritative date (e.g. RSS).
func PassesCutoff(candidate *entity.RawCandidate, fromDate time.Time) bool {
	if candidate.PublishedAt != nil {
		return !candidate.PublishedAt.Before(fromDate)
	}
	return candidate.IsAuthoritativelyDated()
}
