package ignore

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gitignore "github.com/denormal/go-gitignore"
)

// Matcher decides whether a path is excluded from indexing and watching.
// It combines excluded directory names, the dot-segment rule, per-root
// .filefindignore rules and custom CLI patterns.
// Thread-safe: root changes and Reload() take the write lock, checks take the read lock.
type Matcher struct {
	mu             sync.RWMutex
	roots          []string // longest first, so nested roots win
	excluded       map[string]bool
	ignoreFiles    map[string]gitignore.GitIgnore // key: root
	customPatterns []string
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	Roots          []string
	ExcludedDirs   []string // defaults to DefaultExcludedDirs when nil
	CustomPatterns []string
}

// NewMatcher creates a matcher for the given roots.
func NewMatcher(options MatcherOptions) *Matcher {
	excludedDirs := options.ExcludedDirs
	if excludedDirs == nil {
		excludedDirs = DefaultExcludedDirs
	}

	matcher := &Matcher{
		excluded:       make(map[string]bool, len(excludedDirs)),
		ignoreFiles:    make(map[string]gitignore.GitIgnore),
		customPatterns: options.CustomPatterns,
	}
	for _, name := range excludedDirs {
		matcher.excluded[name] = true
	}
	for _, root := range options.Roots {
		matcher.addRootLocked(root)
	}
	return matcher
}

// AddRoot registers another root directory and loads its ignore file.
func (m *Matcher) AddRoot(root string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addRootLocked(root)
}

// RemoveRoot forgets a root directory.
func (m *Matcher) RemoveRoot(root string) {
	root = filepath.Clean(root)
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.roots[:0]
	for _, r := range m.roots {
		if r != root {
			kept = append(kept, r)
		}
	}
	m.roots = kept
	delete(m.ignoreFiles, root)
}

// Roots returns the registered roots.
func (m *Matcher) Roots() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.roots...)
}

func (m *Matcher) addRootLocked(root string) {
	root = filepath.Clean(root)
	for _, r := range m.roots {
		if r == root {
			return
		}
	}
	m.roots = append(m.roots, root)
	sort.Slice(m.roots, func(i, j int) bool { return len(m.roots[i]) > len(m.roots[j]) })
	m.ignoreFiles[root] = loadIgnoreFile(filepath.Join(root, IgnoreFileName), root)
}

// ShouldIgnore returns true if the given absolute path should be excluded.
// Path segments are checked relative to the enclosing root, so a root that
// itself lives under a dot directory can still be indexed.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	root, relativePath := m.relativeToRoot(absolutePath)
	if relativePath == "." {
		return false
	}

	for _, part := range strings.Split(relativePath, "/") {
		if part == "" {
			continue
		}
		if m.excluded[part] || strings.HasPrefix(part, ".") {
			return true
		}
	}

	if gi := m.ignoreFiles[root]; gi != nil {
		isDir := false
		if info, err := os.Stat(absolutePath); err == nil {
			isDir = info.IsDir()
		}
		// Relative() doesn't require the file to exist on disk
		match := gi.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}

	return m.matchesCustomPatterns(relativePath)
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	dirName := filepath.Base(absolutePath)

	// Fast check without taking the lock
	if strings.HasPrefix(dirName, ".") && !m.isRoot(absolutePath) {
		return true
	}
	return m.ShouldIgnore(absolutePath)
}

// IsIgnoreFile reports whether path is a root-level .filefindignore file.
func (m *Matcher) IsIgnoreFile(absolutePath string) bool {
	if filepath.Base(absolutePath) != IgnoreFileName {
		return false
	}
	return m.isRoot(filepath.Dir(absolutePath))
}

// Reload re-reads every root's .filefindignore file from disk.
// Used when the watcher detects a change to one of them.
func (m *Matcher) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := make(map[string]gitignore.GitIgnore, len(m.roots))
	for _, root := range m.roots {
		loaded[root] = loadIgnoreFile(filepath.Join(root, IgnoreFileName), root)
	}
	m.ignoreFiles = loaded
}

func (m *Matcher) isRoot(path string) bool {
	path = filepath.Clean(path)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, root := range m.roots {
		if root == path {
			return true
		}
	}
	return false
}

// relativeToRoot returns the enclosing root and the forward-slash path
// relative to it. Paths outside every root are returned whole.
func (m *Matcher) relativeToRoot(absolutePath string) (string, string) {
	absolutePath = filepath.Clean(absolutePath)
	for _, root := range m.roots {
		relativePath, err := filepath.Rel(root, absolutePath)
		if err != nil || relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
			continue
		}
		return root, filepath.ToSlash(relativePath)
	}
	return "", strings.TrimPrefix(filepath.ToSlash(absolutePath), "/")
}

// matchesCustomPatterns checks if the path matches any user-provided CLI exclude pattern.
func (m *Matcher) matchesCustomPatterns(relativePath string) bool {
	for _, pattern := range m.customPatterns {
		// Try matching against relative path
		matched, err := filepath.Match(pattern, relativePath)
		if err == nil && matched {
			return true
		}

		// Try matching against basename
		baseName := filepath.Base(relativePath)
		matched, err = filepath.Match(pattern, baseName)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
