package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// FileIndex is the in-memory snapshot of every known file.
// It uses a map for O(1) path lookups and a sorted slice for ordered iteration.
// Readers always receive copies, so a snapshot never observes a half-applied upsert.
type FileIndex struct {
	mu          sync.RWMutex
	files       map[string]FileRecord // key: absolute path
	sortedPaths []string
	loaded      bool
	lastUpdated time.Time
}

// Stats describes the current state of the index.
type Stats struct {
	FileCount   int       `json:"file_count"`
	IsLoaded    bool      `json:"is_loaded"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewFileIndex creates a new empty file index.
func NewFileIndex() *FileIndex {
	return &FileIndex{
		files:       make(map[string]FileRecord),
		sortedPaths: make([]string, 0),
	}
}

// Load replaces the entire snapshot with the given records.
// Later duplicates of the same path win.
func (fi *FileIndex) Load(records []FileRecord) {
	files := make(map[string]FileRecord, len(records))
	for _, record := range records {
		files[record.Path] = record
	}
	sortedPaths := make([]string, 0, len(files))
	for path := range files {
		sortedPaths = append(sortedPaths, path)
	}
	sort.Strings(sortedPaths)

	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.files = files
	fi.sortedPaths = sortedPaths
	fi.loaded = true
	fi.lastUpdated = time.Now()
}

// AddFile adds a file, replacing any existing record with the same path.
func (fi *FileIndex) AddFile(record FileRecord) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	_, exists := fi.files[record.Path]
	fi.files[record.Path] = record
	if !exists {
		fi.insertSorted(record.Path)
	}
	fi.lastUpdated = time.Now()
}

// UpdateFile replaces the record stored under path. It is a no-op returning
// false when path is unknown; use AddFile for new paths.
// If record carries a different path the old entry is re-keyed.
func (fi *FileIndex) UpdateFile(path string, record FileRecord) bool {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	if _, exists := fi.files[path]; !exists {
		return false
	}
	if record.Path != path {
		delete(fi.files, path)
		fi.removeSorted(path)
		if _, taken := fi.files[record.Path]; !taken {
			fi.insertSorted(record.Path)
		}
	}
	fi.files[record.Path] = record
	fi.lastUpdated = time.Now()
	return true
}

// RemoveFile removes a file by path. Returns false if it was not indexed.
func (fi *FileIndex) RemoveFile(path string) bool {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	if _, exists := fi.files[path]; !exists {
		return false
	}
	delete(fi.files, path)
	fi.removeSorted(path)
	fi.lastUpdated = time.Now()
	return true
}

// RemoveUnder removes every file located below dir and returns how many were dropped.
func (fi *FileIndex) RemoveUnder(dir string) int {
	prefix := strings.TrimRight(dir, `/\`)
	fi.mu.Lock()
	defer fi.mu.Unlock()

	removed := 0
	kept := fi.sortedPaths[:0]
	for _, path := range fi.sortedPaths {
		if isUnder(path, prefix) {
			delete(fi.files, path)
			removed++
			continue
		}
		kept = append(kept, path)
	}
	fi.sortedPaths = kept
	if removed > 0 {
		fi.lastUpdated = time.Now()
	}
	return removed
}

// GetFile returns the record for path and whether it exists.
func (fi *FileIndex) GetFile(path string) (FileRecord, bool) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	record, ok := fi.files[path]
	return record, ok
}

// FileCount returns the number of indexed files.
func (fi *FileIndex) FileCount() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.files)
}

// ExtensionCounts returns a map of extension -> file count for all indexed files.
func (fi *FileIndex) ExtensionCounts() map[string]int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	counts := make(map[string]int)
	for _, file := range fi.files {
		counts[file.Extension]++
	}
	return counts
}

// Stats returns the file count, load state and last mutation time.
func (fi *FileIndex) Stats() Stats {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return Stats{
		FileCount:   len(fi.files),
		IsLoaded:    fi.loaded,
		LastUpdated: fi.lastUpdated,
	}
}

// SearchByGlob returns files whose path matches a doublestar glob pattern.
// Patterns are matched against forward-slash paths in sorted order.
// A maxResults of zero or less returns every match.
func (fi *FileIndex) SearchByGlob(pattern string, maxResults int) ([]FileRecord, error) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var results []FileRecord
	for _, path := range fi.sortedPaths {
		if maxResults > 0 && len(results) >= maxResults {
			break
		}

		matched, err := doublestar.Match(pattern, strings.ReplaceAll(path, "\\", "/"))
		if err != nil {
			continue
		}
		if matched {
			results = append(results, fi.files[path])
		}
	}

	return results, nil
}

// AllFiles returns a copy of every indexed record in path order.
func (fi *FileIndex) AllFiles() []FileRecord {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	result := make([]FileRecord, 0, len(fi.sortedPaths))
	for _, path := range fi.sortedPaths {
		result = append(result, fi.files[path])
	}
	return result
}

// Clear removes all files from the index and marks it unloaded.
func (fi *FileIndex) Clear() {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	fi.files = make(map[string]FileRecord)
	fi.sortedPaths = make([]string, 0)
	fi.loaded = false
	fi.lastUpdated = time.Time{}
}

func (fi *FileIndex) insertSorted(path string) {
	idx := sort.SearchStrings(fi.sortedPaths, path)
	fi.sortedPaths = append(fi.sortedPaths, "")
	copy(fi.sortedPaths[idx+1:], fi.sortedPaths[idx:])
	fi.sortedPaths[idx] = path
}

func (fi *FileIndex) removeSorted(path string) {
	idx := sort.SearchStrings(fi.sortedPaths, path)
	if idx < len(fi.sortedPaths) && fi.sortedPaths[idx] == path {
		fi.sortedPaths = append(fi.sortedPaths[:idx], fi.sortedPaths[idx+1:]...)
	}
}

// isUnder reports whether path lies strictly below dir.
func isUnder(path, dir string) bool {
	if len(path) <= len(dir) || !strings.HasPrefix(path, dir) {
		return false
	}
	sep := path[len(dir)]
	return sep == '/' || sep == '\\'
}
