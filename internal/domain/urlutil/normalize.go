package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParamPrefixes and trackingParamNames are stripped by NormalizeURL
// regardless of case.
var trackingParamPrefixes = []string{"utm_"}

var trackingParamNames = map[string]bool{
	"utm":    true,
	"fbclid": true,
	"gclid":  true,
	"mc_eid": true,
	"ref":    true,
	"source": true,
}

// NormalizeURL canonicalizes a URL for exact-dedup and unique-constraint
// purposes: lowercase host, strip default port, drop the fragment, remove
// tracking parameters, sort remaining query params, and strip a trailing
// slash from the path. NormalizeURL is idempotent (§8 invariant 7).
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(stripDefaultPort(u.Scheme, u.Host))
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if trackingParamNames[lower] || hasTrackingPrefix(lower) {
			q.Del(key)
		}
	}
	u.RawQuery = sortedQuery(q)

	u.Path = strings.TrimSuffix(u.Path, "/")
	if u.Path == "" {
		u.Path = ""
	}

	return u.String()
}

func hasTrackingPrefix(key string) bool {
	for _, prefix := range trackingParamPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func stripDefaultPort(scheme, host string) string {
	switch scheme {
	case "http":
		return strings.TrimSuffix(host, ":80")
	case "https":
		return strings.TrimSuffix(host, ":443")
	default:
		return host
	}
}

func sortedQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		values := q[k]
		sort.Strings(values)
		for j, v := range values {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
