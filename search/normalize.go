package search

import "strings"

// NormalizeQuery lowercases and trims a query. It is idempotent and is used
// both for matching and as the query cache key.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
