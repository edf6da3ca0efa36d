package urlutil

import (
	"regexp"
	"strings"
	"sync"
)

var (
	matchCacheMu sync.Mutex
	matchCache   = map[string]*regexp.Regexp{}
)

// ContainsWordBoundary reports whether keyword appears in text as a whole
// word, case-insensitively. It backs the §8 invariant that every persisted
// mention has at least one matching keyword in its title or teaser, and the
// Configurable HTML provider's keyword-match step (§4.7.4).
func ContainsWordBoundary(text, keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}
	re := compiledBoundary(keyword)
	return re.MatchString(text)
}

func compiledBoundary(keyword string) *regexp.Regexp {
	lower := strings.ToLower(keyword)

	matchCacheMu.Lock()
	defer matchCacheMu.Unlock()
	if re, ok := matchCache[lower]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(lower) + `\b`)
	matchCache[lower] = re
	return re
}
