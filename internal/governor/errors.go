// Package governor implements the Rate Governor (§4.3): a per-domain,
// per-profile token bucket, a global per-profile concurrency cap, and a
// per-domain circuit breaker over extraction outcomes. Grounded on the
// teacher's named circuitbreaker.Config instances, generalized here into a
// keyed registry, and on golang.org/x/time/rate for the token buckets.
package governor

import "errors"

// ErrCircuitOpen is returned by Acquire when the target domain's breaker is
// open; callers must treat this as a fast-fail, not a retryable error.
var ErrCircuitOpen = errors.New("governor: circuit open")
