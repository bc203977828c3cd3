package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/lexandro/filefind-mcp/ignore"
	"github.com/lexandro/filefind-mcp/search"
	"github.com/lexandro/filefind-mcp/watcher"
	"gopkg.in/yaml.v3"
)

// ErrNotDirectory is returned when a directory to index does not exist or is a file.
var ErrNotDirectory = errors.New("not an existing directory")

// Settings is the user settings file. CLI flags override its values.
type Settings struct {
	Directories         []string `yaml:"directories"`           // Indexed and watched roots (absolute)
	ExcludedDirs        []string `yaml:"excluded_dirs"`         // Directory names never indexed
	MaxResults          int      `yaml:"max_results"`           // Ranked results returned per search
	FuzzyThreshold      float64  `yaml:"fuzzy_threshold"`       // Minimum name similarity, 0-100
	CacheSize           int      `yaml:"cache_size"`            // Distinct queries cached
	DebounceMs          int      `yaml:"debounce_ms"`           // Duplicate event suppression window
	SyncIntervalSeconds int      `yaml:"sync_interval_seconds"` // Periodic reconciliation, 0 disables
	DBPath              string   `yaml:"db_path"`               // SQLite database (empty = default)

	mu   sync.Mutex
	path string
}

// DefaultPath returns the default settings file path (~/.filefind/settings.yaml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".filefind", "settings.yaml"), nil
}

// Default returns settings with every tunable at its default.
func Default() *Settings {
	return &Settings{
		Directories:         []string{},
		ExcludedDirs:        slices.Clone(ignore.DefaultExcludedDirs),
		MaxResults:          search.DefaultMaxResults,
		FuzzyThreshold:      search.DefaultFuzzyThreshold,
		CacheSize:           search.DefaultCacheSize,
		DebounceMs:          int(watcher.DefaultDebounceWindow / time.Millisecond),
		SyncIntervalSeconds: 300,
	}
}

// Load reads settings from path. A missing file yields defaults bound to path,
// so a later Save creates it.
func Load(path string) (*Settings, error) {
	s := Default()
	s.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// Validate checks that tunables are within range.
func (s *Settings) Validate() error {
	if s.MaxResults < 0 {
		return fmt.Errorf("max_results must not be negative, got %d", s.MaxResults)
	}
	// Zero means unset to the search engine
	if s.FuzzyThreshold <= 0 || s.FuzzyThreshold > 100 {
		return fmt.Errorf("fuzzy_threshold must be above 0 and at most 100, got %g", s.FuzzyThreshold)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", s.CacheSize)
	}
	if s.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", s.DebounceMs)
	}
	if s.SyncIntervalSeconds < 0 {
		return fmt.Errorf("sync_interval_seconds must not be negative, got %d", s.SyncIntervalSeconds)
	}
	return nil
}

// Path returns the file the settings are saved to.
func (s *Settings) Path() string {
	return s.path
}

// DebounceWindow returns DebounceMs as a duration.
func (s *Settings) DebounceWindow() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// SyncInterval returns SyncIntervalSeconds as a duration.
func (s *Settings) SyncInterval() time.Duration {
	return time.Duration(s.SyncIntervalSeconds) * time.Second
}

// Save writes the settings to their file, creating the directory if needed.
func (s *Settings) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Settings) saveLocked() error {
	if s.path == "" {
		return errors.New("settings have no file path")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// IndexedDirectories returns a copy of the configured roots.
func (s *Settings) IndexedDirectories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.Directories)
}

// AddDirectory makes dir absolute, checks that it is an existing directory and
// persists it. Returns the absolute path and whether it was newly added.
func (s *Settings) AddDirectory(dir string) (string, bool, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(absolute)
	if err != nil || !info.IsDir() {
		return absolute, false, fmt.Errorf("%s: %w", absolute, ErrNotDirectory)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.Directories, absolute) {
		return absolute, false, nil
	}
	s.Directories = append(s.Directories, absolute)
	if err := s.saveLocked(); err != nil {
		s.Directories = s.Directories[:len(s.Directories)-1]
		return absolute, false, err
	}
	return absolute, true, nil
}

// RemoveDirectory forgets dir and persists the change.
// Returns the absolute path and whether it was configured.
func (s *Settings) RemoveDirectory(dir string) (string, bool, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s: %w", dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.Directories, absolute)
	if i < 0 {
		return absolute, false, nil
	}
	previous := slices.Clone(s.Directories)
	s.Directories = slices.Delete(s.Directories, i, i+1)
	if err := s.saveLocked(); err != nil {
		s.Directories = previous
		return absolute, false, err
	}
	return absolute, true, nil
}
