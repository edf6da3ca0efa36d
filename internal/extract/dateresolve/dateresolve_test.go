package dateresolve

import (
	"testing"
	"time"

	"mediascrape/internal/domain/entity"
)

func TestResolve_PrefersRSSOverFreeText(t *testing.T) {
	parsed, confidence, raw := Resolve(Inputs{
		SourceRSS:      "2024-03-01T12:00:00Z",
		SourceFreeText: "March 5th, 2024",
	})
	if parsed == nil {
		t.Fatal("expected a parsed date")
	}
	if confidence != entity.DateConfidenceHigh {
		t.Errorf("expected high confidence from RSS, got %s", confidence)
	}
	if raw != "2024-03-01T12:00:00Z" {
		t.Errorf("expected RSS raw string to win, got %q", raw)
	}
}

func TestResolve_FallsBackWhenHigherPrioritySourceUnparseable(t *testing.T) {
	parsed, confidence, _ := Resolve(Inputs{
		SourceRSS:       "not a date at all",
		SourceDateSelector: "2024-03-01",
	})
	if parsed == nil {
		t.Fatal("expected fallback to date_selector to parse")
	}
	if confidence != entity.DateConfidenceMedium {
		t.Errorf("expected medium confidence from date_selector, got %s", confidence)
	}
}

func TestResolve_NoneWhenNothingParses(t *testing.T) {
	parsed, confidence, _ := Resolve(Inputs{SourceFreeText: "whenever"})
	if parsed != nil {
		t.Errorf("expected nil parsed date, got %v", parsed)
	}
	if confidence != entity.DateConfidenceNone {
		t.Errorf("expected none confidence, got %s", confidence)
	}
}

func TestPassesCutoff_DropsOlderThanFromDate(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &entity.RawCandidate{PublishedAt: &old}
	if PassesCutoff(c, from) {
		t.Error("expected candidate older than from_date to be dropped")
	}
}

func TestPassesCutoff_KeepsUndatedRSSCandidate(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &entity.RawCandidate{ProviderTag: "rss"}
	if !PassesCutoff(c, from) {
		t.Error("expected undated RSS candidate to survive cutoff as authoritative")
	}
}

func TestPassesCutoff_DropsUndatedNonAuthoritativeCandidate(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &entity.RawCandidate{ProviderTag: "gnews"}
	if PassesCutoff(c, from) {
		t.Error("expected undated non-authoritative candidate to be dropped")
	}
}
