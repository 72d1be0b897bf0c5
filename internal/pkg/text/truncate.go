package text

import "strings"

// Truncate trims surrounding whitespace and cuts s to at most max bytes,
// marking the cut with "...". A non-positive max disables the limit.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
