package urlutil

import "strings"

// CleanKeyword trims a raw keyword and collapses internal whitespace. The
// second return value is false when the cleaned keyword is empty, signaling
// callers (Orchestrator, Coordinator) to drop it.
func CleanKeyword(raw string) (string, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", false
	}
	return strings.Join(fields, " "), true
}
