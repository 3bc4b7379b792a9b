package source

import "strings"

// caseFold produces a case-insensitive sort key. Used both for
// module-ordering (spec.md §4.2) and for detecting directories that
// collide only in case under a case-insensitive filesystem (spec.md §9).
func caseFold(s string) string {
	return strings.ToLower(s)
}
