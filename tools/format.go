package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/filefind-mcp/filetype"
	"github.com/lexandro/filefind-mcp/index"
	"github.com/lexandro/filefind-mcp/search"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sahilm/fuzzy"
)

const timeLayout = "2006-01-02 15:04"

// FormatSearchResults formats ranked name matches as human-readable text.
// Characters of the name matched by the query are wrapped in brackets.
func FormatSearchResults(query string, results []search.Result, total int) string {
	if len(results) == 0 {
		return "No files found."
	}

	var builder strings.Builder
	if total > len(results) {
		builder.WriteString(fmt.Sprintf("Found %d files (showing %d):\n\n", total, len(results)))
	} else {
		builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(results)))
	}

	width := len(fmt.Sprintf("%d", len(results)))
	for i, result := range results {
		builder.WriteString(fmt.Sprintf("%*d. %s  (score %.1f, %s, modified %s)\n",
			width, i+1,
			HighlightName(query, result.Name),
			result.Score,
			filetype.Categorize(result.Extension),
			result.Modified().Format(timeLayout),
		))
		builder.WriteString(fmt.Sprintf("%*s  %s\n", width, "", result.Path))
	}

	return builder.String()
}

// HighlightName brackets the runs of name that the query matches as a subsequence.
// The name is returned unchanged when the query is not a subsequence of it.
func HighlightName(query string, name string) string {
	query = search.NormalizeQuery(query)
	if query == "" {
		return name
	}
	matches := fuzzy.Find(strings.ReplaceAll(query, " ", ""), []string{name})
	if len(matches) == 0 {
		return name
	}

	matched := make(map[int]bool, len(matches[0].MatchedIndexes))
	for _, i := range matches[0].MatchedIndexes {
		matched[i] = true
	}

	var builder strings.Builder
	open := false
	for i, r := range name {
		if matched[i] && !open {
			builder.WriteByte('[')
			open = true
		} else if !matched[i] && open {
			builder.WriteByte(']')
			open = false
		}
		builder.WriteRune(r)
	}
	if open {
		builder.WriteByte(']')
	}
	return builder.String()
}

// FormatFileResults formats a file listing. total is the number of matches
// before the listing was cut to len(results).
func FormatFileResults(results []index.FileRecord, total int, pathsOnly bool) string {
	if len(results) == 0 {
		return "No files matched."
	}

	var builder strings.Builder
	if total > len(results) {
		builder.WriteString(fmt.Sprintf("Listing %d of %d files:\n\n", len(results), total))
	} else {
		builder.WriteString(fmt.Sprintf("Listing %d files:\n\n", len(results)))
	}

	for _, result := range results {
		if pathsOnly {
			builder.WriteString(result.Path)
			builder.WriteString("\n")
		} else {
			builder.WriteString(fmt.Sprintf("  %s  (%s, modified %s)\n",
				result.Path,
				filetype.Categorize(result.Extension),
				result.Modified().Format(timeLayout),
			))
		}
	}

	return builder.String()
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}

// errorResult builds a tool error result.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// textResult builds a successful tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
