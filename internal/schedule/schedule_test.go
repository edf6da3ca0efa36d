package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediascrape/internal/coordinate"
	"mediascrape/internal/dedup"
	"mediascrape/internal/domain/entity"
	"mediascrape/internal/orchestrate"
	"mediascrape/internal/provider"
	"mediascrape/internal/relevance"
	"mediascrape/internal/repository"
)

type fakeStore struct {
	mu          sync.Mutex
	dueBrands   []*entity.Brand
	lockedIDs   map[int64]bool
	runCount    map[int64]int
	releaseSeen map[int64]bool
}

func newFakeStore(due []*entity.Brand, lockedIDs map[int64]bool) *fakeStore {
	return &fakeStore{
		dueBrands:   due,
		lockedIDs:   lockedIDs,
		runCount:    make(map[int64]int),
		releaseSeen: make(map[int64]bool),
	}
}

func (f *fakeStore) AcquireBrandLock(ctx context.Context, brandID int64, now time.Time, staleWindow time.Duration) (*entity.Brand, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lockedIDs[brandID] {
		return nil, false, nil
	}
	f.runCount[brandID]++
	for _, b := range f.dueBrands {
		if b.ID == brandID {
			return b, true, nil
		}
	}
	return &entity.Brand{ID: brandID}, true, nil
}
func (f *fakeStore) ReleaseBrandLock(ctx context.Context, brandID int64, scrapedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseSeen[brandID] = true
	return nil
}
func (f *fakeStore) GetBrand(ctx context.Context, brandID int64) (*entity.Brand, error) {
	for _, b := range f.dueBrands {
		if b.ID == brandID {
			return b, nil
		}
	}
	return nil, entity.ErrNotFound
}
func (f *fakeStore) DueBrands(ctx context.Context, now time.Time) ([]*entity.Brand, error) {
	return f.dueBrands, nil
}
func (f *fakeStore) ActiveTopicsWithKeywords(ctx context.Context, brandID int64) ([]*entity.Topic, map[int64][]*entity.Keyword, error) {
	return nil, nil, nil
}
func (f *fakeStore) SourceRecipes(ctx context.Context) ([]*entity.SourceRecipe, error) {
	return nil, nil
}
func (f *fakeStore) GetMentionByURLAndTopic(ctx context.Context, normalizedURL string, topicID int64) (*entity.Mention, error) {
	return nil, entity.ErrNotFound
}
func (f *fakeStore) BatchInsertMentions(ctx context.Context, mentions []*entity.Mention) ([]int64, error) {
	return nil, nil
}
func (f *fakeStore) BatchInsertMentionKeywords(ctx context.Context, links []*entity.MentionKeyword) error {
	return nil
}
func (f *fakeStore) UpsertPlatform(ctx context.Context, hostname string) (*entity.Platform, error) {
	return &entity.Platform{ID: 1, Hostname: hostname}, nil
}

func newCoordinator(store repository.Store) *coordinate.Coordinator {
	d := dedup.New(dedup.DefaultConfig(), store)
	o := orchestrate.New(orchestrate.DefaultConfig(), []provider.Provider{}, d, relevance.Noop{})
	return coordinate.New(store, o, d)
}

func TestRunDueBrands_RunsEachDueBrandOnce(t *testing.T) {
	due := []*entity.Brand{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	store := newFakeStore(due, map[int64]bool{})
	sched := New(Config{JitterWindow: time.Millisecond}, store, newCoordinator(store))

	sched.RunDueBrands(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.runCount[1] != 1 || store.runCount[2] != 1 {
		t.Fatalf("expected each due brand run exactly once, got %v", store.runCount)
	}
	if !store.releaseSeen[1] || !store.releaseSeen[2] {
		t.Fatalf("expected lock release for every run brand, got %v", store.releaseSeen)
	}
}

func TestRunDueBrands_SkipsLockedBrandSilently(t *testing.T) {
	due := []*entity.Brand{{ID: 1, Name: "A"}}
	store := newFakeStore(due, map[int64]bool{1: true})
	sched := New(Config{JitterWindow: time.Millisecond}, store, newCoordinator(store))

	sched.RunDueBrands(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.runCount[1] != 0 {
		t.Fatalf("expected locked brand never to acquire, got runCount=%d", store.runCount[1])
	}
}

type acquireErrStore struct {
	*fakeStore
	failBrandID int64
}

func (f *acquireErrStore) AcquireBrandLock(ctx context.Context, brandID int64, now time.Time, staleWindow time.Duration) (*entity.Brand, bool, error) {
	if brandID == f.failBrandID {
		return nil, false, errors.New("injected lock failure")
	}
	return f.fakeStore.AcquireBrandLock(ctx, brandID, now, staleWindow)
}

func TestRunDueBrands_IsolatesOneBrandFailureFromAnother(t *testing.T) {
	due := []*entity.Brand{{ID: 1, Name: "Fails"}, {ID: 2, Name: "Fine"}}
	base := newFakeStore(due, map[int64]bool{})
	store := &acquireErrStore{fakeStore: base, failBrandID: 1}

	sched := New(Config{JitterWindow: time.Millisecond}, store, newCoordinator(store))
	sched.RunDueBrands(context.Background())

	base.mu.Lock()
	defer base.mu.Unlock()
	if base.runCount[2] != 1 {
		t.Fatalf("expected brand 2 to still run despite brand 1's failure, got %v", base.runCount)
	}
	if base.runCount[1] != 0 {
		t.Fatalf("expected brand 1's lock failure to prevent its own run, got %v", base.runCount)
	}
}

func TestRandomJitter_StaysWithinWindow(t *testing.T) {
	window := 10 * time.Minute
	for i := 0; i < 50; i++ {
		j := randomJitter(window)
		if j < 0 || j >= window {
			t.Fatalf("jitter %v out of bounds [0, %v)", j, window)
		}
	}
}

func TestRandomJitter_ZeroWindowReturnsZero(t *testing.T) {
	if j := randomJitter(0); j != 0 {
		t.Errorf("expected 0 jitter for zero window, got %v", j)
	}
}
