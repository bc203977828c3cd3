package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/filefind-mcp/ignore"
	"github.com/lexandro/filefind-mcp/service"
	"github.com/lexandro/filefind-mcp/watcher"
)

// SyncResult holds the outcome of a single sync verification run.
type SyncResult struct {
	MissingFiles  int // files on disk but not in index
	StaleFiles    int // files in index but not on disk
	ModifiedFiles int // files where ModifiedTime differs
	Duration      time.Duration
}

// runPeriodicSync starts a background loop that verifies index consistency at the given interval.
// It runs until ctx is cancelled. dirs is consulted on every run so directory changes are picked up.
func runPeriodicSync(
	ctx context.Context,
	interval time.Duration,
	dirs func() []string,
	svc *service.Service,
	ignoreMatcher *ignore.Matcher,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("periodic sync started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic sync stopped")
			return
		case <-ticker.C:
			logSyncResult(performSyncVerification(ctx, dirs(), svc, ignoreMatcher, logger), logger)
		}
	}
}

func logSyncResult(result SyncResult, logger *slog.Logger) {
	totalDiscrepancies := result.MissingFiles + result.StaleFiles + result.ModifiedFiles
	if totalDiscrepancies > 0 {
		logger.Info("sync verification complete",
			"missing", result.MissingFiles,
			"stale", result.StaleFiles,
			"modified", result.ModifiedFiles,
			"duration", result.Duration,
		)
	} else {
		logger.Debug("sync verification complete, index is in sync", "duration", result.Duration)
	}
}

// performSyncVerification compares the filesystem below dirs with the index and
// routes every discrepancy through the service as a synthetic event, so the
// store, the index and the query cache are repaired together.
func performSyncVerification(
	ctx context.Context,
	dirs []string,
	svc *service.Service,
	ignoreMatcher *ignore.Matcher,
	logger *slog.Logger,
) SyncResult {
	start := time.Now()
	var result SyncResult

	// Step 1: Build a set of all files currently on disk
	diskFiles := make(map[string]int64) // key: absolute path, value: mtime in epoch seconds
	for _, root := range dirs {
		walkRoot(ctx, root, ignoreMatcher, func(path string) {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				return
			}
			diskFiles[path] = info.ModTime().Unix()
		})
	}

	// An interrupted walk would make every unvisited file look stale
	if ctx.Err() != nil {
		result.Duration = time.Since(start)
		return result
	}

	// Step 2: Get all currently indexed files below the synced roots
	indexedSet := make(map[string]int64)
	for _, record := range svc.Files().AllFiles() {
		if underAny(record.Path, dirs) {
			indexedSet[record.Path] = record.ModifiedTime
		}
	}

	// Step 3: Find missing and modified files
	for path, modifiedTime := range diskFiles {
		indexedTime, exists := indexedSet[path]
		switch {
		case !exists:
			if svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: path}) {
				logger.Info("sync: indexed missing file", "path", path)
				result.MissingFiles++
			}
		case indexedTime != modifiedTime:
			if svc.Apply(ctx, watcher.Event{Kind: watcher.Modified, Path: path}) {
				logger.Info("sync: re-indexed modified file", "path", path)
				result.ModifiedFiles++
			}
		}
	}

	// Step 4: Find stale files (in index but not on disk)
	for path := range indexedSet {
		if _, exists := diskFiles[path]; !exists {
			if svc.Apply(ctx, watcher.Event{Kind: watcher.Deleted, Path: path}) {
				logger.Info("sync: removed stale file", "path", path)
				result.StaleFiles++
			}
		}
	}

	result.Duration = time.Since(start)
	return result
}

// underAny reports whether path lies below one of dirs.
func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		dir = strings.TrimRight(dir, `/\`)
		if strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
