package urlutil

import "strings"

// stopWords covers the languages this deployment commonly sees; it is
// intentionally small — it only strips common noise words.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "is": true, "at": true,
	"by": true, "with": true, "from": true,
	// Danish, common in this deployment's source material (see §8 scenario 1)
	// ("for" is Danish too; it is already listed above)
	"og": true, "i": true, "en": true, "et": true, "til": true,
	"paa": true, "med": true,
}

// TokenizeForMatch lowercases text, splits on non-alphanumeric runes, and
// drops stop-words, returning the remaining token set. Keyword matching
// (ContainsWordBoundary) and the Deduplicator's title comparison do not
// use it; each has its own tokenization.
func TokenizeForMatch(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := strings.ToLower(b.String())
		b.Reset()
		if stopWords[tok] {
			return
		}
		tokens[tok] = struct{}{}
	}
	for _, r := range text {
		if isAlnum(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		r > 127 // permit non-ASCII letters (accents etc.)
}
