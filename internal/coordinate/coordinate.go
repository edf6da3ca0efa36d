// Package coordinate implements the Scrape-Run Coordinator (C11, §4.11):
// run_scrape(brand_id, trigger) acquires a per-brand lock, builds
// context-aware queries from active topics/keywords, drives the
// Orchestrator, scores candidates against topics, and batch-persists the
// result with a guaranteed lock release on every exit path.
//
// Grounded on the teacher's fetch.Service.CrawlAllSources/
// processSingleSource shape (per-entity bind-logs-then-process loop,
// error isolation, metrics recorded alongside a bound logger) in
// internal/usecase/fetch/service.go, adapted from "one source at a time"
// to "one brand run, many topics scored against it".
package coordinate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediascrape/internal/dedup"
	"mediascrape/internal/domain/entity"
	"mediascrape/internal/domain/urlutil"
	"mediascrape/internal/observability/metrics"
	"mediascrape/internal/orchestrate"
	"mediascrape/internal/repository"
)

// RunBudget is the hard wall-clock budget for a single run, per §5.
const RunBudget = 15 * time.Minute

// Coordinator drives run_scrape for a single brand at a time.
type Coordinator struct {
	store        repository.Store
	orchestrator *orchestrate.Orchestrator
	dedup        *dedup.Deduplicator

	platformMu    sync.Mutex
	platformCache map[string]*entity.Platform
}

func New(store repository.Store, orchestrator *orchestrate.Orchestrator, deduplicator *dedup.Deduplicator) *Coordinator {
	return &Coordinator{
		store:         store,
		orchestrator:  orchestrator,
		dedup:         deduplicator,
		platformCache: make(map[string]*entity.Platform),
	}
}

// Trigger names who initiated a run, bound onto every log line.
type Trigger string

const (
	TriggerAPI      Trigger = "api"
	TriggerSchedule Trigger = "schedule"
)

// Result summarizes a completed run for the caller (API handler / scheduler).
type Result struct {
	RunID            string
	CandidatesFound  int
	MentionsInserted int
	Duration         time.Duration
}

// RunScrape executes the full §4.11 sequence for one brand and blocks until
// it finishes. It always returns entity.ErrLocked (never wrapped) when the
// brand's lock could not be acquired, so callers can map it to HTTP 409
// with errors.Is. Used by the Scheduler, which is happy to block its own
// per-brand goroutine for the run's duration.
func (c *Coordinator) RunScrape(ctx context.Context, brandID int64, trigger Trigger) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, RunBudget)
	defer cancel()

	now := time.Now()
	brand, acquired, err := c.store.AcquireBrandLock(ctx, brandID, now, entity.StaleLockWindow)
	if err != nil {
		return nil, fmt.Errorf("acquire brand lock: %w", err)
	}
	if !acquired {
		return nil, entity.ErrLocked
	}

	return c.runLocked(ctx, brand, newRunID(brandID), trigger, now)
}

// StartScrape acquires the brand lock synchronously, so the HTTP handler can
// return 404/409 immediately, then runs the pipeline in the background on a
// context detached from the request. Background failures are logged, not
// returned: the caller only needs to know whether the run was accepted.
func (c *Coordinator) StartScrape(ctx context.Context, brandID int64, trigger Trigger) (runID string, err error) {
	now := time.Now()
	brand, acquired, err := c.store.AcquireBrandLock(ctx, brandID, now, entity.StaleLockWindow)
	if err != nil {
		return "", fmt.Errorf("acquire brand lock: %w", err)
	}
	if !acquired {
		return "", entity.ErrLocked
	}

	runID = newRunID(brandID)
	bgCtx, cancel := context.WithTimeout(context.Background(), RunBudget)
	go func() {
		defer cancel()
		if _, err := c.runLocked(bgCtx, brand, runID, trigger, now); err != nil {
			slog.Default().Error("background scrape run failed",
				slog.String("run_id", runID), slog.Int64("brand_id", brandID), slog.Any("error", err))
		}
	}()
	return runID, nil
}

// runLocked executes §4.11 steps 2 onward for a brand whose lock the caller
// already holds, releasing it on every exit path including panic.
func (c *Coordinator) runLocked(ctx context.Context, brand *entity.Brand, runID string, trigger Trigger, now time.Time) (*Result, error) {
	start := now
	brandID := brand.ID
	logger := slog.Default().With(
		slog.String("run_id", runID),
		slog.Int64("brand_id", brandID),
		slog.String("trigger", string(trigger)),
	)
	logger.Info("scrape run started")

	// Cleanup always runs, including on panic: release the lock and stamp
	// last_scraped_at, and record the run outcome metric.
	status := "success"
	defer func() {
		releaseErr := c.store.ReleaseBrandLock(context.WithoutCancel(ctx), brandID, time.Now())
		if releaseErr != nil {
			logger.Error("failed to release brand lock", slog.Any("error", releaseErr))
		}
		metrics.RecordScrapeRun(status, time.Since(start))
		if r := recover(); r != nil {
			logger.Error("scrape run panicked", slog.Any("panic", r))
			panic(r)
		}
	}()

	topics, keywordsByTopic, err := c.store.ActiveTopicsWithKeywords(ctx, brandID)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("load active topics: %w", err)
	}
	if len(topics) == 0 {
		logger.Info("no active topics, nothing to scrape")
		return &Result{RunID: runID, Duration: time.Since(start)}, nil
	}

	queries := collectKeywords(topics, keywordsByTopic, brand.Name)

	candidates := c.orchestrator.FetchAllMentions(ctx, queries, brand.Name, now.AddDate(0, 0, -30), now, runID)

	scored := scoreAgainstTopics(candidates, topics, keywordsByTopic)
	if len(scored) == 0 {
		logger.Info("scrape run found no scored candidates", slog.Int("raw_candidates", len(candidates)))
		return &Result{RunID: runID, CandidatesFound: len(candidates), Duration: time.Since(start)}, nil
	}

	scored = c.dropAlreadyPersisted(ctx, scored)
	if len(scored) == 0 {
		logger.Info("scrape run found nothing new after historical dedup", slog.Int("raw_candidates", len(candidates)))
		return &Result{RunID: runID, CandidatesFound: len(candidates), Duration: time.Since(start)}, nil
	}

	mentions, links, err := c.buildMentionsAndLinks(ctx, brandID, runID, now, scored)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("build mentions: %w", err)
	}

	ids, err := c.store.BatchInsertMentions(ctx, mentions)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("batch insert mentions: %w", err)
	}
	if err := c.attachLinkIDs(ctx, ids, mentions, links); err != nil {
		status = "error"
		return nil, fmt.Errorf("batch insert mention keywords: %w", err)
	}

	logger.Info("scrape run completed",
		slog.Int("raw_candidates", len(candidates)),
		slog.Int("scored_candidates", len(scored)),
		slog.Int("mentions_inserted", len(ids)),
		slog.Duration("duration", time.Since(start)),
	)

	return &Result{
		RunID:            runID,
		CandidatesFound:  len(candidates),
		MentionsInserted: len(ids),
		Duration:         time.Since(start),
	}, nil
}

func newRunID(brandID int64) string {
	return fmt.Sprintf("%d-%s", brandID, uuid.New().String()[:8])
}

// collectKeywords builds the provider-facing query list per §4.11 step 3:
// each topic's keywords are substituted into its query_template (raw
// keyword when no template is set), deduplicated across topics.
func collectKeywords(topics []*entity.Topic, byTopic map[int64][]*entity.Keyword, brandName string) []string {
	seenQuery := make(map[string]bool)
	var queries []string

	for _, topic := range topics {
		for _, kw := range byTopic[topic.ID] {
			term := strings.ToLower(strings.TrimSpace(kw.Term))
			if term == "" {
				continue
			}
			query := buildQuery(topic.QueryTemplate, brandName, kw.Term)
			if !seenQuery[query] {
				seenQuery[query] = true
				queries = append(queries, query)
			}
		}
	}
	return queries
}

// buildQuery substitutes {brand}/{keyword} into a topic's query template,
// falling back to the raw keyword when no template is configured.
func buildQuery(template, brandName, keyword string) string {
	if template == "" {
		return keyword
	}
	q := strings.ReplaceAll(template, "{brand}", brandName)
	q = strings.ReplaceAll(q, "{keyword}", keyword)
	return q
}

// scoredCandidate pairs a raw candidate with its winning topic/keyword
// assignment from step 5 of §4.11.
type scoredCandidate struct {
	entity.RawCandidate
	topicID          int64
	primaryKeywordID int64
	matchedIn        entity.MatchLocation
	score            int
}

// scoreAgainstTopics implements §4.11 step 5: each candidate is scored
// against every topic (title hits weight 2, teaser hits weight 1),
// assigned to the highest-scoring topic (ties broken by most recently
// updated topic), and dropped if it scores 0 against everything.
func scoreAgainstTopics(candidates []entity.RawCandidate, topics []*entity.Topic, byTopic map[int64][]*entity.Keyword) []scoredCandidate {
	sortedTopics := make([]*entity.Topic, len(topics))
	copy(sortedTopics, topics)
	sort.Slice(sortedTopics, func(i, j int) bool {
		return sortedTopics[i].UpdatedAt.After(sortedTopics[j].UpdatedAt)
	})

	var out []scoredCandidate
	for _, cand := range candidates {
		title := strings.ToLower(cand.Title)
		teaser := strings.ToLower(cand.Teaser)

		bestScore := 0
		var bestTopic *entity.Topic
		var bestKeyword *entity.Keyword
		bestLocation := entity.MatchInTitle

		for _, topic := range sortedTopics {
			score := 0
			var topicBestKeyword *entity.Keyword
			topicBestKeywordScore := 0
			topicBestLocation := entity.MatchInTitle

			for _, kw := range byTopic[topic.ID] {
				term := strings.ToLower(strings.TrimSpace(kw.Term))
				if term == "" {
					continue
				}
				inTitle := urlutil.ContainsWordBoundary(title, term)
				inTeaser := urlutil.ContainsWordBoundary(teaser, term)
				kwScore := 0
				loc := entity.MatchInTitle
				if inTitle {
					kwScore += 2
					loc = entity.MatchInTitle
				}
				if inTeaser {
					kwScore += 1
					if !inTitle {
						loc = entity.MatchInTeaser
					}
				}
				if kwScore == 0 {
					continue
				}
				score += kwScore
				if kwScore > topicBestKeywordScore {
					topicBestKeywordScore = kwScore
					topicBestKeyword = kw
					topicBestLocation = loc
				}
			}

			if score > bestScore {
				bestScore = score
				bestTopic = topic
				bestKeyword = topicBestKeyword
				bestLocation = topicBestLocation
			}
		}

		if bestScore == 0 || bestTopic == nil || bestKeyword == nil {
			continue
		}

		out = append(out, scoredCandidate{
			RawCandidate:     cand,
			topicID:          bestTopic.ID,
			primaryKeywordID: bestKeyword.ID,
			matchedIn:        bestLocation,
			score:            bestScore,
		})
	}
	return out
}

// dropAlreadyPersisted runs the Deduplicator's historical check (§4.8
// "historical dedup, run scope") per topic — a candidate already persisted
// against a given topic from an earlier run is dropped before it ever
// reaches BatchInsertMentions.
func (c *Coordinator) dropAlreadyPersisted(ctx context.Context, scored []scoredCandidate) []scoredCandidate {
	byTopic := make(map[int64][]int)
	for i, sc := range scored {
		byTopic[sc.topicID] = append(byTopic[sc.topicID], i)
	}

	keep := make([]bool, len(scored))
	for topicID, indices := range byTopic {
		raw := make([]entity.RawCandidate, len(indices))
		for j, i := range indices {
			raw[j] = scored[i].RawCandidate
		}
		survivors := c.dedup.HistoricalDedupe(ctx, raw, topicID)
		survivorURLs := make(map[string]struct{}, len(survivors))
		for _, s := range survivors {
			survivorURLs[s.NormalizedURL] = struct{}{}
		}
		for _, i := range indices {
			if _, ok := survivorURLs[scored[i].NormalizedURL]; ok {
				keep[i] = true
			}
		}
	}

	out := make([]scoredCandidate, 0, len(scored))
	for i, sc := range scored {
		if keep[i] {
			out = append(out, sc)
		}
	}
	return out
}

// buildMentionsAndLinks resolves each scored candidate's platform (via the
// in-memory cache, lazily upserting unknown hosts), then builds the
// Mention/MentionKeyword rows for batch insert.
func (c *Coordinator) buildMentionsAndLinks(ctx context.Context, brandID int64, runID string, now time.Time, scored []scoredCandidate) ([]*entity.Mention, []*entity.MentionKeyword, error) {
	mentions := make([]*entity.Mention, 0, len(scored))
	// links[i] corresponds to mentions[i]; its MentionID is filled in once
	// BatchInsertMentions returns generated IDs in the same order.
	links := make([]*entity.MentionKeyword, 0, len(scored))

	for _, sc := range scored {
		hostname := normalizedHostname(sc.URL)
		platform, err := c.resolvePlatform(ctx, hostname)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve platform for %q: %w", hostname, err)
		}

		normalized := sc.NormalizedURL
		if normalized == "" {
			normalized = urlutil.NormalizeURL(sc.URL)
		}

		mentions = append(mentions, &entity.Mention{
			BrandID:          brandID,
			TopicID:          sc.topicID,
			PrimaryKeywordID: sc.primaryKeywordID,
			PlatformID:       platform.ID,
			Title:            sc.Title,
			Teaser:           truncateTeaser(sc.Teaser),
			NormalizedURL:    normalized,
			RawURL:           sc.URL,
			PublishedAt:      sc.PublishedAt,
			DateConfidence:   sc.DateConfidence,
			DiscoveredAt:     now,
			ScrapeRunID:      runID,
		})
		links = append(links, &entity.MentionKeyword{
			KeywordID: sc.primaryKeywordID,
			MatchedIn: sc.matchedIn,
			Score:     sc.score,
		})
	}

	return mentions, links, nil
}

// attachLinkIDs fills in MentionID on each pre-built link from the IDs
// BatchInsertMentions returned (same order as the mentions slice) and
// persists the links. BatchInsertMentions always resolves a real row ID —
// on conflict it looks up the already-persisted mention rather than
// returning a sentinel — so every link here points at a valid mention,
// whether brand-new or re-discovered from a prior run.
func (c *Coordinator) attachLinkIDs(ctx context.Context, ids []int64, mentions []*entity.Mention, links []*entity.MentionKeyword) error {
	if len(ids) != len(mentions) || len(ids) != len(links) {
		return fmt.Errorf("mismatched batch insert result: %d ids for %d mentions", len(ids), len(mentions))
	}

	for i, id := range ids {
		links[i].MentionID = id
	}
	return c.store.BatchInsertMentionKeywords(ctx, links)
}

// resolvePlatform looks up hostname in the in-memory cache, lazily
// upserting on miss, per §4.11 step 6.
func (c *Coordinator) resolvePlatform(ctx context.Context, hostname string) (*entity.Platform, error) {
	c.platformMu.Lock()
	if p, ok := c.platformCache[hostname]; ok {
		c.platformMu.Unlock()
		return p, nil
	}
	c.platformMu.Unlock()

	platform, err := c.store.UpsertPlatform(ctx, hostname)
	if err != nil {
		return nil, err
	}

	c.platformMu.Lock()
	c.platformCache[hostname] = platform
	c.platformMu.Unlock()
	return platform, nil
}

func normalizedHostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
}

func truncateTeaser(teaser string) string {
	if len(teaser) <= entity.MaxTeaserLength {
		return teaser
	}
	return teaser[:entity.MaxTeaserLength]
}
