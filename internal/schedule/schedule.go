// Package schedule implements the Scheduler (C12, §4.12): an hourly
// cron tick that lists due brands, smears their invocation with
// per-brand jitter, and drives the Scrape-Run Coordinator for each one
// in isolation.
//
// Grounded on the teacher's cmd/worker/main.go startCronWorker/
// runCrawlJob pair (robfig/cron/v3, cron.WithLocation, a single
// AddFunc-registered job running under its own timeout) — generalized
// from "one daily job over all sources" to "one hourly tick fanning out
// over many independently-locked brands".
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mediascrape/internal/coordinate"
	"mediascrape/internal/domain/entity"
	"mediascrape/internal/repository"
)

// DefaultCronExpr runs the scheduler's due-brand sweep once an hour.
const DefaultCronExpr = "0 * * * *"

// DefaultJitterWindow bounds the random delay (up to 10 min, forward only)
// applied to each brand's invocation within a tick; see randomJitter.
const DefaultJitterWindow = 10 * time.Minute

// Config tunes the Scheduler's tick cadence and jitter.
type Config struct {
	CronExpr     string
	Timezone     string
	JitterWindow time.Duration
}

func DefaultConfig() Config {
	return Config{CronExpr: DefaultCronExpr, Timezone: "UTC", JitterWindow: DefaultJitterWindow}
}

// Scheduler drives periodic due-brand scrape runs.
type Scheduler struct {
	cfg         Config
	store       repository.Store
	coordinator *coordinate.Coordinator
	cron        *cron.Cron
}

func New(cfg Config, store repository.Store, coordinator *coordinate.Coordinator) *Scheduler {
	if cfg.CronExpr == "" {
		cfg.CronExpr = DefaultCronExpr
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.JitterWindow <= 0 {
		cfg.JitterWindow = DefaultJitterWindow
	}
	return &Scheduler{cfg: cfg, store: store, coordinator: coordinator}
}

// Start registers the due-brand sweep on the configured cron schedule
// and begins running it in the background. Call Stop to shut down.
func (s *Scheduler) Start() error {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		slog.Warn("scheduler: invalid timezone, falling back to UTC",
			slog.String("timezone", s.cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	s.cron = cron.New(cron.WithLocation(loc))
	if _, err := s.cron.AddFunc(s.cfg.CronExpr, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("scheduler started", slog.String("cron_expr", s.cfg.CronExpr), slog.String("timezone", s.cfg.Timezone))
	return nil
}

// Stop halts the cron scheduler and waits for the in-flight tick, if
// any, to return. A tick returns only after every brand run it started
// has finished, since RunDueBrands waits for all of them.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// tick is the cron-invoked entry point: it lists due brands and
// dispatches each independently, per-brand-jittered.
func (s *Scheduler) tick() {
	s.RunDueBrands(context.Background())
}

// RunDueBrands lists every currently-due brand and scrapes each one in
// its own goroutine, applying a random delay in [0, JitterWindow) before
// invoking the Coordinator so a whole fleet of due brands doesn't hit
// providers in the same instant. One brand's failure (including a
// panic) never affects another's, per §4.12's isolation requirement.
func (s *Scheduler) RunDueBrands(ctx context.Context) {
	now := time.Now()
	brands, err := s.store.DueBrands(ctx, now)
	if err != nil {
		slog.Error("scheduler: failed to list due brands", slog.Any("error", err))
		return
	}
	if len(brands) == 0 {
		return
	}
	slog.Info("scheduler: due brands found", slog.Int("count", len(brands)))

	var wg sync.WaitGroup
	for _, brand := range brands {
		wg.Add(1)
		go func(b *entity.Brand) {
			defer wg.Done()
			s.runBrandJittered(ctx, b)
		}(brand)
	}
	wg.Wait()
}

func (s *Scheduler) runBrandJittered(ctx context.Context, brand *entity.Brand) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler: brand run panicked", slog.Int64("brand_id", brand.ID), slog.Any("panic", r))
		}
	}()

	jitter := randomJitter(s.cfg.JitterWindow)
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		return
	}

	_, err := s.coordinator.RunScrape(ctx, brand.ID, coordinate.TriggerSchedule)
	if err != nil {
		if errors.Is(err, entity.ErrLocked) {
			slog.Debug("scheduler: brand already running, skipping", slog.Int64("brand_id", brand.ID))
			return
		}
		slog.Error("scheduler: brand run failed", slog.Int64("brand_id", brand.ID), slog.Any("error", err))
	}
}

// randomJitter returns a uniformly random delay in [0, window). A tick
// can only smear load forward in time, so the ±window invariant from
// §4.12 is realized as a random delay of up to one window width rather
// than a true negative/positive spread around the tick instant.
func randomJitter(window time.Duration) time.Duration {
	if window <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(window)))
}
