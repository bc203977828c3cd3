package watcher

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultRenameGrace is how long a rename waits for the matching create
// before it is reported as a deletion.
const DefaultRenameGrace = 50 * time.Millisecond

// IgnoreChecker is used by the watcher to check if a path should be ignored.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
	IsIgnoreFile(absolutePath string) bool
	Reload()
}

// Options configures a Watcher.
type Options struct {
	DebounceWindow time.Duration
	RenameGrace    time.Duration
}

// Watcher provides recursive file system watching over several roots.
// Accepted events are delivered on Events(); directory events and ignored
// paths never reach it.
type Watcher struct {
	fsWatcher     *fsnotify.Watcher
	debouncer     *Debouncer
	ignoreChecker IgnoreChecker
	roots         []string
	renameGrace   time.Duration
	logger        *slog.Logger

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	// Owned by the Start goroutine after construction.
	dirs          map[string]bool
	goneDirs      map[string]bool // dropped directories awaiting their second notification
	pendingRename string
}

// NewWatcher creates a recursive file watcher on the given roots.
// Roots that are missing or not directories are skipped with a warning;
// it fails only if no root could be watched.
func NewWatcher(roots []string, ignoreChecker IgnoreChecker, logger *slog.Logger, options Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if options.RenameGrace <= 0 {
		options.RenameGrace = DefaultRenameGrace
	}

	w := &Watcher{
		fsWatcher:     fsWatcher,
		debouncer:     NewDebouncer(options.DebounceWindow),
		ignoreChecker: ignoreChecker,
		renameGrace:   options.RenameGrace,
		logger:        logger,
		events:        make(chan Event, 256),
		done:          make(chan struct{}),
		dirs:          make(map[string]bool),
		goneDirs:      make(map[string]bool),
	}

	for _, root := range roots {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			logger.Warn("cannot watch directory, not a valid directory", "path", root)
			continue
		}
		w.watchTree(root, false)
		w.roots = append(w.roots, root)
		logger.Info("now watching", "path", root)
	}

	if len(w.roots) == 0 {
		fsWatcher.Close()
		return nil, errors.New("no valid directories to watch")
	}
	return w, nil
}

// Roots returns the directories being watched.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Events returns the channel that receives accepted file system events.
// It is closed when the watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins listening for file system events. Call this in a goroutine.
// It runs until the watcher is closed.
func (w *Watcher) Start() {
	defer close(w.events)

	var renameTimer <-chan time.Time
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				w.flushRename()
				return
			}
			w.handleEvent(event)
			renameTimer = nil
			if w.pendingRename != "" {
				renameTimer = time.After(w.renameGrace)
			}

		case <-renameTimer:
			renameTimer = nil
			w.flushRename()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent converts a single fsnotify event into zero or more Events.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if w.ignoreChecker.IsIgnoreFile(path) {
		w.ignoreChecker.Reload()
		w.logger.Info("reloaded ignore rules", "trigger", path)
		return
	}

	if event.Has(fsnotify.Create) {
		delete(w.goneDirs, path)
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.flushRename()
			if !w.ignoreChecker.ShouldIgnoreDir(path) {
				// Files copied in with the directory never produce their own events
				w.watchTree(path, true)
			}
			return // Don't emit events for directory creation
		}
		if w.pendingRename != "" {
			from := w.pendingRename
			w.pendingRename = ""
			w.emitMove(from, path)
			return
		}
		if !w.ignoreChecker.ShouldIgnore(path) {
			w.emit(Event{Kind: Created, Path: path})
		}
		return
	}

	// Anything other than a create ends the rename pairing window
	w.flushRename()

	switch {
	case event.Has(fsnotify.Write):
		if w.ignoreChecker.ShouldIgnore(path) {
			return
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return
		}
		w.emit(Event{Kind: Modified, Path: path})

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A watched directory is reported by its parent and by its own watch
		if w.goneDirs[path] {
			delete(w.goneDirs, path)
			return
		}
		if w.dirs[path] {
			w.dropTree(path)
			w.goneDirs[path] = true
			w.emit(Event{Kind: DirectoryRemoved, Path: path})
			return
		}
		if event.Has(fsnotify.Rename) {
			w.pendingRename = path
			return
		}
		if !w.ignoreChecker.ShouldIgnore(path) {
			w.emit(Event{Kind: Deleted, Path: path})
		}
	}
}

// dropTree forgets dir and every watched directory below it.
func (w *Watcher) dropTree(dir string) {
	prefix := dir + string(filepath.Separator)
	for path := range w.dirs {
		if path != dir && !strings.HasPrefix(path, prefix) {
			continue
		}
		delete(w.dirs, path)
		// The kernel may already have dropped the watch
		_ = w.fsWatcher.Remove(path)
	}
}

// emitMove reports a rename, degrading to a create or delete when one side is ignored.
func (w *Watcher) emitMove(from, to string) {
	fromIgnored := w.ignoreChecker.ShouldIgnore(from)
	toIgnored := w.ignoreChecker.ShouldIgnore(to)

	switch {
	case fromIgnored && toIgnored:
		return
	case fromIgnored:
		w.emit(Event{Kind: Created, Path: to})
	case toIgnored:
		w.emit(Event{Kind: Deleted, Path: from})
	default:
		w.emit(Event{Kind: Moved, Path: from, DestPath: to})
	}
}

// flushRename reports an unpaired rename as a deletion of the old path.
func (w *Watcher) flushRename() {
	if w.pendingRename == "" {
		return
	}
	path := w.pendingRename
	w.pendingRename = ""
	if !w.ignoreChecker.ShouldIgnore(path) {
		w.emit(Event{Kind: Deleted, Path: path})
	}
}

// emit passes event through the debouncer and delivers it unless the watcher is closing.
func (w *Watcher) emit(event Event) {
	if !w.debouncer.Accept(event) {
		w.logger.Debug("debounced event", "kind", event.Kind.String(), "path", event.Path)
		return
	}
	select {
	case w.events <- event:
	case <-w.done:
	}
}

// watchTree adds root and every non-ignored subdirectory to the watcher.
// With emitFiles set, files found inside are reported as created.
func (w *Watcher) watchTree(root string, emitFiles bool) {
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries that can't be read
		}
		if !d.IsDir() {
			if emitFiles && !w.ignoreChecker.ShouldIgnore(path) {
				w.emit(Event{Kind: Created, Path: path})
			}
			return nil
		}
		if path != root && w.ignoreChecker.ShouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if watchErr := w.fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
			return nil
		}
		w.dirs[path] = true
		return nil
	})
}

// Close stops the watcher and releases resources. It is safe to call more than once.
// Pending debounce state is discarded.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fsWatcher.Close()
	})
	return w.closeErr
}
