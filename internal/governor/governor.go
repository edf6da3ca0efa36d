package governor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"mediascrape/internal/domain/urlutil"
	"mediascrape/internal/infra/httpclient"
	"mediascrape/internal/resilience/circuitbreaker"
)

// Config tunes the three governed resources: per-(domain,profile) token
// buckets, per-profile global concurrency, and the per-domain circuit
// breaker. Zero-valued fields fall back to the §4.3 defaults via
// DefaultConfig.
type Config struct {
	HTMLRps float64
	APIRps  float64
	RSSRps  float64

	HTMLConcurrency int
	APIConcurrency  int
	RSSConcurrency  int

	// DomainFailureThreshold is the consecutive zero-usable-content
	// extraction failures that open a domain's circuit. Default 8.
	DomainFailureThreshold uint32
	// DomainCooldown is how long an open circuit stays open before a
	// half-open probe is allowed. Default 10 minutes.
	DomainCooldown time.Duration
}

// DefaultConfig returns the §4.3 defaults: HTML 1.5 rps, API 3.0 rps, RSS
// 2.0 rps, unlimited-but-sane global concurrency, breaker threshold 8 with
// a 10-minute cooldown.
func DefaultConfig() Config {
	return Config{
		HTMLRps:                1.5,
		APIRps:                 3.0,
		RSSRps:                 2.0,
		HTMLConcurrency:        10,
		APIConcurrency:         10,
		RSSConcurrency:         10,
		DomainFailureThreshold: 8,
		DomainCooldown:         10 * time.Minute,
	}
}

// Governor is the process-wide, shared rate/concurrency/circuit-breaker
// registry described in §4.3 and referenced by §5's concurrency model as a
// "process-wide, shared read-mostly map with fine-grained locks."
type Governor struct {
	cfg Config

	limiterMu sync.Mutex
	limiters  map[limiterKey]*rate.Limiter

	sems map[httpclient.Profile]chan struct{}

	breakerMu sync.Mutex
	breakers  map[string]*circuitbreaker.CircuitBreaker
}

type limiterKey struct {
	domain  string
	profile httpclient.Profile
}

// New constructs a Governor. The global concurrency semaphores are
// allocated up front, one per profile.
func New(cfg Config) *Governor {
	g := &Governor{
		cfg:      cfg,
		limiters: make(map[limiterKey]*rate.Limiter),
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
		sems:     make(map[httpclient.Profile]chan struct{}),
	}
	g.sems[httpclient.ProfileHTML] = make(chan struct{}, concurrencyOrDefault(cfg.HTMLConcurrency))
	g.sems[httpclient.ProfileAPI] = make(chan struct{}, concurrencyOrDefault(cfg.APIConcurrency))
	g.sems[httpclient.ProfileRSS] = make(chan struct{}, concurrencyOrDefault(cfg.RSSConcurrency))
	return g
}

func concurrencyOrDefault(n int) int {
	if n <= 0 {
		return 10
	}
	return n
}

// Acquire blocks until the caller holds both a global concurrency slot for
// profile and a rate-limit token for (domain, profile), or ctx is done.
// The returned release func must be called exactly once, typically in a
// defer, to return the concurrency slot.
func (g *Governor) Acquire(ctx context.Context, rawURLOrDomain string, profile httpclient.Profile) (release func(), err error) {
	domain := urlutil.EffectiveTLDPlusOne(rawURLOrDomain)

	sem := g.sems[profile]
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	released := false
	release = func() {
		if !released {
			released = true
			<-sem
		}
	}

	limiter := g.limiterFor(domain, profile)
	if err := limiter.Wait(ctx); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

func (g *Governor) limiterFor(domain string, profile httpclient.Profile) *rate.Limiter {
	key := limiterKey{domain: domain, profile: profile}

	g.limiterMu.Lock()
	defer g.limiterMu.Unlock()
	if l, ok := g.limiters[key]; ok {
		return l
	}
	rps := g.rpsFor(profile)
	// burst of 1: the governor smooths to the configured steady-state rate
	// rather than allowing request bursts, per §8's steady-state assertion.
	l := rate.NewLimiter(rate.Limit(rps), 1)
	g.limiters[key] = l
	return l
}

func (g *Governor) rpsFor(profile httpclient.Profile) float64 {
	switch profile {
	case httpclient.ProfileAPI:
		return g.cfg.APIRps
	case httpclient.ProfileRSS:
		return g.cfg.RSSRps
	default:
		return g.cfg.HTMLRps
	}
}

// Breaker returns the circuit breaker for a domain, lazily creating it on
// first use. Extraction call sites execute their attempt through it to
// track consecutive zero-usable-content failures (§4.3).
func (g *Governor) Breaker(rawURLOrDomain string) *circuitbreaker.CircuitBreaker {
	domain := urlutil.EffectiveTLDPlusOne(rawURLOrDomain)

	g.breakerMu.Lock()
	defer g.breakerMu.Unlock()
	if cb, ok := g.breakers[domain]; ok {
		return cb
	}
	cb := circuitbreaker.New(circuitbreaker.DomainConfig(domain, g.cfg.DomainFailureThreshold, g.cfg.DomainCooldown))
	g.breakers[domain] = cb
	return cb
}

// errEmptyExtraction is the sentinel fed to a domain's circuit breaker
// whenever an extraction attempt produced no usable content, per §4.3's
// "consecutive extraction failures that produced zero usable content."
var errEmptyExtraction = fmt.Errorf("governor: extraction produced no usable content")

// ErrEmptyExtraction reports that a breaker-guarded extraction produced no
// usable content (as opposed to a hard error). Call sites compare with
// errors.Is against this to distinguish the two failure shapes if needed.
func ErrEmptyExtraction() error { return errEmptyExtraction }

// Guard runs fn (an extraction attempt) through the domain's circuit
// breaker. If the breaker is open, fn is never called and ErrCircuitOpen is
// returned. fn should return usable=false (no error) when the attempt
// completed but produced no usable content, so the breaker's
// consecutive-failure count advances correctly.
func (g *Governor) Guard(rawURLOrDomain string, fn func() (usable bool, err error)) error {
	cb := g.Breaker(rawURLOrDomain)
	_, err := cb.Execute(func() (interface{}, error) {
		usable, ferr := fn()
		if ferr != nil {
			return nil, ferr
		}
		if !usable {
			return nil, errEmptyExtraction
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrCircuitOpen
	}
	return err
}
