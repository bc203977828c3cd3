package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lexandro/filefind-mcp/ignore"
	"github.com/lexandro/filefind-mcp/index"
	"github.com/lexandro/filefind-mcp/store"
)

// indexBatchSize is the number of records written per store transaction.
const indexBatchSize = 1000

// performIndexing walks every directory and writes all eligible files to the store.
// Returns the number of files written.
func performIndexing(
	ctx context.Context,
	dirs []string,
	fileStore *store.SQLiteStore,
	ignoreMatcher *ignore.Matcher,
	logger *slog.Logger,
) (int, error) {
	// Use a bounded worker pool for parallel stat calls
	const workerCount = 8
	jobs := make(chan string, 100)
	records := make(chan index.FileRecord, 100)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				info, err := os.Stat(path)
				if err != nil || info.IsDir() {
					logger.Debug("skipped file", "path", path, "error", err)
					continue
				}
				records <- index.NewFileRecord(path, info.ModTime())
			}
		}()
	}

	// Single writer batches records into the store
	var indexedCount int
	var writeErr error
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		batch := make([]index.FileRecord, 0, indexBatchSize)
		flush := func() {
			if len(batch) == 0 || writeErr != nil {
				return
			}
			if err := fileStore.UpsertFiles(ctx, batch); err != nil {
				writeErr = err
				return
			}
			indexedCount += len(batch)
			logger.Debug("indexed batch", "files", len(batch), "total", indexedCount)
			batch = batch[:0]
		}
		for record := range records {
			batch = append(batch, record)
			if len(batch) >= indexBatchSize {
				flush()
			}
		}
		flush()
	}()

	for _, root := range dirs {
		walkRoot(ctx, root, ignoreMatcher, func(path string) {
			jobs <- path
		})
	}

	close(jobs)
	wg.Wait()
	close(records)
	<-writerDone

	if writeErr != nil {
		return indexedCount, writeErr
	}
	return indexedCount, ctx.Err()
}

// walkRoot calls visit for every non-ignored file below root.
func walkRoot(ctx context.Context, root string, ignoreMatcher *ignore.Matcher, visit func(path string)) {
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if path != root && ignoreMatcher.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignoreMatcher.ShouldIgnore(path) {
			return nil
		}
		visit(path)
		return nil
	})
}
