package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lexandro/filefind-mcp/ignore"
	"github.com/lexandro/filefind-mcp/index"
	"github.com/lexandro/filefind-mcp/search"
	"github.com/lexandro/filefind-mcp/watcher"
)

// Store is the persisted record store the service writes through to.
type Store interface {
	UpsertFile(ctx context.Context, record index.FileRecord) error
	UpdateFile(ctx context.Context, path string, record index.FileRecord) (bool, error)
	DeleteFile(ctx context.Context, path string) (bool, error)
	DeleteUnder(ctx context.Context, dir string) (int, error)
	LoadAllFiles(ctx context.Context) ([]index.FileRecord, error)
	Close() error
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	MaxResults     int
	FuzzyThreshold float64
	CacheSize      int
	DebounceWindow time.Duration
	// Ignore filters watcher events. When nil a matcher with the default
	// excluded directories is built for the watched roots.
	Ignore watcher.IgnoreChecker
	Now    func() time.Time
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Index              index.Stats       `json:"index"`
	Cache              search.CacheStats `json:"query_cache"`
	Watching           bool              `json:"watching"`
	WatchedDirectories []string          `json:"watched_directories"`
}

// Service keeps the persisted store, the in-memory index and the query cache
// consistent while serving searches. Mutations write through to the store
// first, then update the index, then invalidate the query cache.
type Service struct {
	store          Store
	files          *index.FileIndex
	engine         *search.Engine
	cache          *search.QueryCache
	ignore         watcher.IgnoreChecker
	debounceWindow time.Duration
	logger         *slog.Logger

	mu sync.Mutex // serializes mutations

	watchMu     sync.Mutex
	watcher     *watcher.Watcher
	watchDone   chan struct{}
	watchedDirs []string
}

// New creates a service over store. Call Load before serving searches.
func New(store Store, options Options, logger *slog.Logger) *Service {
	return &Service{
		store: store,
		files: index.NewFileIndex(),
		engine: search.NewEngine(search.Options{
			MaxResults: options.MaxResults,
			Threshold:  options.FuzzyThreshold,
			Now:        options.Now,
		}),
		cache:          search.NewQueryCache(options.CacheSize),
		ignore:         options.Ignore,
		debounceWindow: options.DebounceWindow,
		logger:         logger,
	}
}

// Load replaces the in-memory index with the store's contents.
// The read and the swap hold the mutation lock so no Apply lands between them.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.LoadAllFiles(ctx)
	if err != nil {
		return err
	}
	s.files.Load(records)
	s.cache.InvalidateAll()
	s.logger.Info("loaded index from store", "files", len(records))
	return nil
}

// Reload re-reads the store after an external full re-index.
func (s *Service) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Search returns ranked results for query, consulting the query cache first.
// It never fails; an empty query yields no results.
func (s *Service) Search(query string) []search.Result {
	normalized := search.NormalizeQuery(query)
	if normalized == "" {
		return []search.Result{}
	}

	if cached, ok := s.cache.Get(normalized); ok {
		return cached
	}

	// Read the generation before the snapshot so a concurrent mutation
	// prevents caching a result computed from the old snapshot.
	generation := s.cache.Generation()
	results := s.engine.Search(normalized, s.files.AllFiles())
	s.cache.SetIfGeneration(generation, normalized, results)
	return results
}

// MaxResults returns the configured result cap.
func (s *Service) MaxResults() int {
	return s.engine.MaxResults()
}

// Files exposes the in-memory index for read-only listings.
func (s *Service) Files() *index.FileIndex {
	return s.files
}

// Apply applies a single file system event to the store, the index and the
// query cache. Failures are logged and the event is dropped.
// Returns true if the index changed.
func (s *Service) Apply(ctx context.Context, event watcher.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed bool
	switch event.Kind {
	case watcher.Created:
		changed = s.upsert(ctx, event.Path, false)
	case watcher.Modified:
		changed = s.upsert(ctx, event.Path, true)
	case watcher.Deleted:
		changed = s.remove(ctx, event.Path)
	case watcher.Moved:
		removed := s.remove(ctx, event.Path)
		created := s.upsert(ctx, event.DestPath, false)
		changed = removed || created
	case watcher.DirectoryRemoved:
		changed = s.removeUnder(ctx, event.Path)
	}

	if changed {
		s.cache.InvalidateAll()
	}
	return changed
}

// upsert re-stats path and writes its record through to the store and index.
func (s *Service) upsert(ctx context.Context, path string, modified bool) bool {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("file vanished before handling", "path", path)
		} else {
			s.logger.Warn("failed to stat file", "path", path, "error", err)
		}
		return false
	}
	if info.IsDir() {
		return false
	}

	record := index.NewFileRecord(path, info.ModTime())

	if modified {
		updated, err := s.store.UpdateFile(ctx, path, record)
		if err != nil {
			s.logger.Warn("failed to update file in store", "path", path, "error", err)
			return false
		}
		if !updated {
			// Modified before we ever saw it created
			if err := s.store.UpsertFile(ctx, record); err != nil {
				s.logger.Warn("failed to add file to store", "path", path, "error", err)
				return false
			}
		}
		if !s.files.UpdateFile(path, record) {
			s.files.AddFile(record)
		}
		s.logger.Debug("updated file", "path", path)
		return true
	}

	if err := s.store.UpsertFile(ctx, record); err != nil {
		s.logger.Warn("failed to add file to store", "path", path, "error", err)
		return false
	}
	s.files.AddFile(record)
	s.logger.Debug("added file", "path", path)
	return true
}

// remove deletes path from the store and the index.
func (s *Service) remove(ctx context.Context, path string) bool {
	deleted, err := s.store.DeleteFile(ctx, path)
	if err != nil {
		s.logger.Warn("failed to delete file from store", "path", path, "error", err)
		return false
	}
	removed := s.files.RemoveFile(path)
	if deleted || removed {
		s.logger.Debug("deleted file", "path", path)
	}
	return deleted || removed
}

// removeUnder drops every record below a directory that vanished from disk.
func (s *Service) removeUnder(ctx context.Context, dir string) bool {
	deleted, err := s.store.DeleteUnder(ctx, dir)
	if err != nil {
		s.logger.Warn("failed to delete directory from store", "path", dir, "error", err)
		return false
	}
	removed := s.files.RemoveUnder(dir)
	if deleted == 0 && removed == 0 {
		return false
	}
	s.logger.Debug("deleted directory", "path", dir, "files", deleted)
	return true
}

// RemoveDirectory drops every record at or below dir.
func (s *Service) RemoveDirectory(ctx context.Context, dir string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.DeleteUnder(ctx, dir)
	if err != nil {
		return 0, err
	}
	removed := s.files.RemoveUnder(dir)
	if n > 0 || removed > 0 {
		s.cache.InvalidateAll()
	}
	s.logger.Info("removed directory from index", "path", dir, "files", n)
	return n, nil
}

// StartWatching begins watching dirs. Returns false if already watching or
// if no directory could be watched.
func (s *Service) StartWatching(dirs []string) bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher != nil {
		s.logger.Info("file watcher already running")
		return false
	}

	checker := s.ignore
	if checker == nil {
		checker = ignore.NewMatcher(ignore.MatcherOptions{Roots: dirs})
	}

	w, err := watcher.NewWatcher(dirs, checker, s.logger, watcher.Options{DebounceWindow: s.debounceWindow})
	if err != nil {
		s.logger.Warn("failed to start file watcher", "error", err)
		return false
	}

	done := make(chan struct{})
	s.watcher = w
	s.watchDone = done
	s.watchedDirs = w.Roots()

	go w.Start()
	go s.consume(w, done)

	s.logger.Info("file watching started", "directories", s.watchedDirs)
	return true
}

// consume drains the watcher's events until its channel closes.
func (s *Service) consume(w *watcher.Watcher, done chan<- struct{}) {
	defer close(done)
	for event := range w.Events() {
		s.Apply(context.Background(), event)
	}
}

// StopWatching stops the watcher if it is running. Pending debounce state is discarded.
func (s *Service) StopWatching() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher == nil {
		return
	}
	if err := s.watcher.Close(); err != nil {
		s.logger.Warn("error closing file watcher", "error", err)
	}
	<-s.watchDone

	s.watcher = nil
	s.watchDone = nil
	s.watchedDirs = nil
	s.logger.Info("file watching stopped")
}

// Watching reports whether the watcher is running.
func (s *Service) Watching() bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.watcher != nil
}

// WatchedDirectories returns the roots currently being watched.
func (s *Service) WatchedDirectories() []string {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return append([]string(nil), s.watchedDirs...)
}

// Stats returns index, cache and watcher statistics.
func (s *Service) Stats() Stats {
	s.watchMu.Lock()
	watching := s.watcher != nil
	dirs := append([]string{}, s.watchedDirs...)
	s.watchMu.Unlock()

	return Stats{
		Index:              s.files.Stats(),
		Cache:              s.cache.Stats(),
		Watching:           watching,
		WatchedDirectories: dirs,
	}
}

// Close stops watching and closes the store.
func (s *Service) Close() error {
	s.StopWatching()
	return s.store.Close()
}
