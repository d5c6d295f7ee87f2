// Package matching builds the search queries and cache keys used to identify comic issues.
package matching

import (
	"regexp"
	"strings"
)

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

// Normalize lower-cases s, strips everything but word characters and
// whitespace, and trims the result.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWordPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
