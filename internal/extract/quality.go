package extract

import "strings"

// QualityInput carries the signals the quality gate scores, per §4.5:
// "text length, text-to-link ratio, presence of title+date, absence of
// boilerplate markers."
type QualityInput struct {
	Text        string
	LinkTextLen int
	HasTitle    bool
	HasDate     bool
}

// boilerplateMarkers are phrases that, found in extracted text, suggest
// the selector grabbed navigation/cookie-banner/paywall chrome instead of
// an article body.
var boilerplateMarkers = []string{
	"cookie policy", "accept all cookies", "subscribe to continue",
	"enable javascript", "sign in to read", "all rights reserved",
}

// Score returns a deterministic 0-100 quality score for an extraction
// candidate. ≥80 chars is the minimum meaningful length, >500 preferred;
// a high link-to-text ratio suggests a navigation block rather than prose;
// title and date presence and boilerplate absence each contribute.
func Score(in QualityInput) int {
	text := strings.TrimSpace(in.Text)
	score := 0

	score += lengthScore(len(text))
	score += linkRatioScore(len(text), in.LinkTextLen)
	if in.HasTitle {
		score += 10
	}
	if in.HasDate {
		score += 10
	}
	if !containsBoilerplate(text) {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func lengthScore(n int) int {
	switch {
	case n < 80:
		return 0
	case n >= 500:
		return 50
	default:
		// linear ramp from 80 to 500 chars across a 0-50 point range
		return int(float64(n-80) / float64(500-80) * 50)
	}
}

func linkRatioScore(textLen, linkTextLen int) int {
	if textLen == 0 {
		return 0
	}
	ratio := float64(linkTextLen) / float64(textLen)
	switch {
	case ratio <= 0.1:
		return 20
	case ratio <= 0.3:
		return 10
	case ratio <= 0.5:
		return 5
	default:
		return 0
	}
}

func containsBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range boilerplateMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
