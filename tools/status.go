package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/lexandro/filefind-mcp/filetype"
	"github.com/lexandro/filefind-mcp/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the filefind_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Service   *service.Service
	StartTime time.Time
	DBPath    string
	Logger    *slog.Logger
}

// Handle processes a filefind_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	stats := h.Service.Stats()
	categoryCounts := categoryCounts(h.Service.Files().ExtensionCounts())
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("filefind_status",
		"files", stats.Index.FileCount,
		"cacheSize", stats.Cache.Size,
		"watching", stats.Watching,
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	builder.WriteString("=== filefind-mcp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Database: %s\n", h.DBPath))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Indexed files: %d\n", stats.Index.FileCount))
	if !stats.Index.LastUpdated.IsZero() {
		builder.WriteString(fmt.Sprintf("Last updated: %s\n", stats.Index.LastUpdated.Format(timeLayout)))
	}
	builder.WriteString(fmt.Sprintf("Query cache: %d/%d entries, %d hits, %d misses, %.2f%% hit rate\n",
		stats.Cache.Size, stats.Cache.MaxSize, stats.Cache.Hits, stats.Cache.Misses, stats.Cache.HitRate))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatBytes(int64(memStats.Alloc)),
		formatBytes(int64(memStats.HeapAlloc)),
	))

	if stats.Watching {
		builder.WriteString("Watching: yes\n")
	} else {
		builder.WriteString("Watching: no\n")
	}
	for _, dir := range stats.WatchedDirectories {
		builder.WriteString(fmt.Sprintf("  %s\n", dir))
	}

	if len(categoryCounts) > 0 {
		builder.WriteString("\nFile types:\n")

		type categoryEntry struct {
			category string
			count    int
		}
		entries := make([]categoryEntry, 0, len(categoryCounts))
		for category, count := range categoryCounts {
			entries = append(entries, categoryEntry{category, count})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].count != entries[j].count {
				return entries[i].count > entries[j].count
			}
			return entries[i].category < entries[j].category
		})

		for _, entry := range entries {
			builder.WriteString(fmt.Sprintf("  %-20s %d files\n", entry.category, entry.count))
		}
	}

	return textResult(builder.String()), nil, nil
}

// categoryCounts folds per-extension counts into per-category counts.
func categoryCounts(extensionCounts map[string]int) map[string]int {
	counts := make(map[string]int)
	for extension, count := range extensionCounts {
		counts[filetype.Categorize(extension)] += count
	}
	return counts
}
