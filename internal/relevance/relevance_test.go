package relevance

import (
	"context"
	"errors"
	"testing"

	"mediascrape/internal/domain/entity"
)

type fakeScorer struct {
	keep map[string]bool
	err  error
}

func (f *fakeScorer) ScoreKeep(ctx context.Context, in Input) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.keep[in.Title], nil
}

func TestNoop_AlwaysKeeps(t *testing.T) {
	keep, err := (Noop{}).ScoreKeep(context.Background(), Input{Title: "anything"})
	if err != nil || !keep {
		t.Fatalf("expected Noop to always keep, got keep=%v err=%v", keep, err)
	}
}

func TestFailOpen_RecoversScorerError(t *testing.T) {
	f := NewFailOpen(&fakeScorer{err: errors.New("boom")})
	keep, err := f.ScoreKeep(context.Background(), Input{Title: "x"})
	if err != nil {
		t.Fatalf("expected FailOpen to swallow the error, got %v", err)
	}
	if !keep {
		t.Error("expected fail-open to keep on scorer error")
	}
}

func TestFailOpen_PropagatesScorerDecisionOnSuccess(t *testing.T) {
	f := NewFailOpen(&fakeScorer{keep: map[string]bool{"relevant": true, "irrelevant": false}})

	keep, err := f.ScoreKeep(context.Background(), Input{Title: "relevant"})
	if err != nil || !keep {
		t.Errorf("expected relevant=keep, got keep=%v err=%v", keep, err)
	}

	drop, err := f.ScoreKeep(context.Background(), Input{Title: "irrelevant"})
	if err != nil || drop {
		t.Errorf("expected irrelevant=drop, got keep=%v err=%v", drop, err)
	}
}

func TestFilter_DropsCandidatesScoredFalse(t *testing.T) {
	scorer := &fakeScorer{keep: map[string]bool{"Keep me": true, "Drop me": false}}
	candidates := []entity.RawCandidate{
		{Title: "Keep me"},
		{Title: "Drop me"},
	}
	out := Filter(context.Background(), scorer, "Acme", candidates)
	if len(out) != 1 || out[0].Title != "Keep me" {
		t.Fatalf("expected only the kept candidate to survive, got %v", out)
	}
}

func TestNewFailOpen_DefaultsToNoopWhenInnerNil(t *testing.T) {
	f := NewFailOpen(nil)
	keep, err := f.ScoreKeep(context.Background(), Input{})
	if err != nil || !keep {
		t.Fatalf("expected nil inner to default to Noop (always keep), got keep=%v err=%v", keep, err)
	}
}
