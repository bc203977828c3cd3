package index

import (
	"path/filepath"
	"strings"
	"time"
)

// FileRecord represents a file known to the index.
// Identity is Path: at most one record exists per path.
type FileRecord struct {
	Name         string `json:"name"`          // Base name including extension
	Path         string `json:"path"`          // Absolute file path (unique key)
	Extension    string `json:"extension"`     // Lowercased extension with leading dot, may be empty
	ModifiedTime int64  `json:"modified_time"` // Last modification time, epoch seconds
}

// NewFileRecord builds a FileRecord for an absolute path and its modification time.
func NewFileRecord(path string, modTime time.Time) FileRecord {
	return FileRecord{
		Name:         filepath.Base(path),
		Path:         path,
		Extension:    strings.ToLower(filepath.Ext(path)),
		ModifiedTime: modTime.Unix(),
	}
}

// Modified returns the modification time as a time.Time.
func (r FileRecord) Modified() time.Time {
	return time.Unix(r.ModifiedTime, 0)
}
