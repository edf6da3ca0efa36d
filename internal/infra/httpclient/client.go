// Package httpclient implements the headered, retry-aware request engine
// (§4.2): per-profile default headers, per-profile timeouts, exponential
// backoff with jitter on 429/5xx, and Retry-After honoring. Grounded on the
// teacher's ReadabilityFetcher HTTP client (its TLS floor; redirect targets
// are not validated here) and its resilience/retry package.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mediascrape/internal/resilience/retry"
)

// Client is the shared request engine used by every provider and the
// Extractor's plain-HTTP-fetch strategy.
type Client struct {
	http *http.Client
}

// New creates a Client with a TLS 1.2 floor and bounded idle connections.
// No CheckRedirect is set, so the default net/http policy applies: up to
// 10 redirects are followed and their targets are not validated.
func New() *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

// Get performs a GET request under the given profile, retrying on 429/5xx
// per §4.2. Only GET/HEAD are ever retried (the method is fixed here, so
// that guard is implicit). The returned body is fully read and closed
// before Get returns.
func (c *Client) Get(ctx context.Context, rawURL string, profile Profile) ([]byte, *http.Response, error) {
	timeout := defaultTimeout(profile)
	headers := defaultHeaders(profile)
	retryCfg := retry.HTTPClientConfig()

	var (
		body []byte
		resp *http.Response
	)

	err := retry.WithBackoff(ctx, retryCfg, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("%w: building request: %v", ErrTransport, err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		r, err := c.http.Do(req)
		if err != nil {
			if reqCtx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		defer func() { _ = r.Body.Close() }()

		b, readErr := io.ReadAll(io.LimitReader(r.Body, 50*1024*1024))
		if readErr != nil {
			return fmt.Errorf("%w: reading body: %v", ErrTransport, readErr)
		}

		if IsServerOrRateLimit(r.StatusCode) {
			honorRetryAfter(ctx, r)
			return &retry.HTTPError{StatusCode: r.StatusCode, Message: r.Status}
		}
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			// non-2xx, non-retryable: fail immediately without consuming attempts
			body, resp = b, r
			return nonRetryableStatus{&HTTPStatusError{StatusCode: r.StatusCode, URL: rawURL}}
		}

		body, resp = b, r
		return nil
	})

	if err != nil {
		var nr nonRetryableStatus
		if asNonRetryable(err, &nr) {
			return body, resp, nr.err
		}
		return nil, nil, err
	}
	return body, resp, nil
}

// ConditionalResult is the outcome of a GetConditional call.
type ConditionalResult struct {
	Body         []byte
	ETag         string
	LastModified string
	NotModified  bool
}

// GetConditional performs a GET with If-None-Match/If-Modified-Since
// headers when etag/lastModified are non-empty, for feed sources that
// support conditional caching (§4.7.3). A 304 response short-circuits with
// NotModified=true and no body; it is not treated as an error and does not
// consume a retry attempt.
func (c *Client) GetConditional(ctx context.Context, rawURL string, profile Profile, etag, lastModified string) (ConditionalResult, error) {
	timeout := defaultTimeout(profile)
	headers := defaultHeaders(profile)
	if etag != "" {
		headers["If-None-Match"] = etag
	}
	if lastModified != "" {
		headers["If-Modified-Since"] = lastModified
	}
	retryCfg := retry.HTTPClientConfig()

	var result ConditionalResult

	err := retry.WithBackoff(ctx, retryCfg, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("%w: building request: %v", ErrTransport, err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		r, err := c.http.Do(req)
		if err != nil {
			if reqCtx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		defer func() { _ = r.Body.Close() }()

		if r.StatusCode == http.StatusNotModified {
			result = ConditionalResult{NotModified: true, ETag: etag, LastModified: lastModified}
			return nil
		}

		b, readErr := io.ReadAll(io.LimitReader(r.Body, 50*1024*1024))
		if readErr != nil {
			return fmt.Errorf("%w: reading body: %v", ErrTransport, readErr)
		}

		if IsServerOrRateLimit(r.StatusCode) {
			honorRetryAfter(ctx, r)
			return &retry.HTTPError{StatusCode: r.StatusCode, Message: r.Status}
		}
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			return nonRetryableStatus{&HTTPStatusError{StatusCode: r.StatusCode, URL: rawURL}}
		}

		result = ConditionalResult{Body: b, ETag: r.Header.Get("ETag"), LastModified: r.Header.Get("Last-Modified")}
		return nil
	})

	if err != nil {
		var nr nonRetryableStatus
		if asNonRetryable(err, &nr) {
			return ConditionalResult{}, nr.err
		}
		return ConditionalResult{}, err
	}
	return result, nil
}

// honorRetryAfter sleeps for the duration named by a 429/503's Retry-After
// header, min-capped at 1s and max-capped at 30s per §4.2. It returns
// immediately if the header is absent or the context is done first.
func honorRetryAfter(ctx context.Context, resp *http.Response) {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return
	}
	wait := time.Duration(secs) * time.Second
	if wait < time.Second {
		wait = time.Second
	}
	if wait > 30*time.Second {
		wait = 30 * time.Second
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// nonRetryableStatus wraps a terminal HTTPStatusError so retry.WithBackoff's
// IsRetryable sees a non-retryable error and stops immediately, while Get
// can still recover the original error to return to its caller.
type nonRetryableStatus struct{ err error }

func (n nonRetryableStatus) Error() string { return n.err.Error() }

func asNonRetryable(err error, target *nonRetryableStatus) bool {
	if nr, ok := err.(nonRetryableStatus); ok {
		*target = nr
		return true
	}
	// retry.WithBackoff wraps the final error; unwrap one layer via fmt's %w chain.
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return asNonRetryable(u.Unwrap(), target)
	}
	return false
}
