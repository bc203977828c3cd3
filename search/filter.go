package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/filefind-mcp/filetype"
)

// modifiedPresets are the accepted ModifiedWithin values.
var modifiedPresets = map[string]time.Duration{
	"today": 24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
	"year":  365 * 24 * time.Hour,
}

// Filter narrows a ranked result list. It is applied after ranking and is
// not part of the query cache key.
type Filter struct {
	Type           string // category name or extension; empty matches all
	ModifiedWithin string // today|week|month|year; empty matches all
	Directory      string // only files below this directory; empty matches all
}

// Validate checks the ModifiedWithin preset.
func (f Filter) Validate() error {
	if f.ModifiedWithin == "" {
		return nil
	}
	if _, ok := modifiedPresets[strings.ToLower(f.ModifiedWithin)]; !ok {
		return fmt.Errorf("unknown modifiedWithin %q (want today, week, month or year)", f.ModifiedWithin)
	}
	return nil
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Type == "" && f.ModifiedWithin == "" && f.Directory == ""
}

// Apply returns the results that satisfy the filter, preserving order.
func (f Filter) Apply(results []Result, now time.Time) []Result {
	if f.IsZero() {
		return results
	}

	var cutoff int64
	if window, ok := modifiedPresets[strings.ToLower(f.ModifiedWithin)]; ok {
		cutoff = now.Add(-window).Unix()
	}
	directory := strings.TrimRight(f.Directory, `/\`)

	filtered := make([]Result, 0, len(results))
	for _, result := range results {
		if !filetype.Matches(result.Extension, f.Type) {
			continue
		}
		if cutoff != 0 && result.ModifiedTime < cutoff {
			continue
		}
		if directory != "" && !strings.HasPrefix(result.Path, directory+"/") && !strings.HasPrefix(result.Path, directory+`\`) {
			continue
		}
		filtered = append(filtered, result)
	}
	return filtered
}
