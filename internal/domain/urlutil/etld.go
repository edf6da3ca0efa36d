// Package urlutil provides the domain-level URL and text utilities shared by
// the Rate Governor, Deduplicator, and Providers: effective-TLD+1
// computation, URL normalization, keyword cleaning, and tokenization.
package urlutil

import (
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// EffectiveTLDPlusOne returns the registrable domain ("eTLD+1") for a URL or
// bare host, using the bundled public-suffix list. It is the key used for
// rate limiting, circuit breaking, and near-dedup blocking (§4.1).
//
// When the public-suffix lookup fails (unknown TLD, malformed host), it
// falls back to the last two dot-separated labels, per the spec's
// documented fallback behavior.
func EffectiveTLDPlusOne(rawURLOrHost string) string {
	host := hostOf(rawURLOrHost)
	if host == "" {
		return ""
	}
	if ip := net.ParseIP(host); ip != nil {
		return host
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err == nil && etld1 != "" {
		return etld1
	}
	return lastTwoLabels(host)
}

func hostOf(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if idx := strings.Index(s, "://"); idx >= 0 {
			s = s[idx+3:]
		}
		if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
			s = s[:idx]
		}
		if idx := strings.LastIndex(s, "@"); idx >= 0 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, ":"); idx >= 0 && !strings.Contains(s, "]") {
		// strip a trailing :port, but not IPv6 brackets
		if _, _, err := net.SplitHostPort(s); err == nil {
			host, _, _ := net.SplitHostPort(s)
			s = host
		}
	}
	return strings.ToLower(strings.TrimSuffix(s, "."))
}

func lastTwoLabels(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
