package httpclient

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Client.Get, per §7's local error taxonomy.
var (
	// ErrTransport covers network/DNS failures before any response was read.
	ErrTransport = errors.New("transport error")
	// ErrTimeout covers a request that exceeded its profile's time budget.
	ErrTimeout = errors.New("request timeout")
)

// HTTPStatusError reports a non-2xx status the client does not retry
// (anything other than 429 and 5xx); it is returned after the first
// attempt. When retries on 429/5xx run out, the error is instead a
// wrapped *retry.HTTPError.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d fetching %s", e.StatusCode, e.URL)
}

// IsServerOrRateLimit reports whether a status code is one the client
// retries on: 429 or any 5xx (§4.2).
func IsServerOrRateLimit(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}
