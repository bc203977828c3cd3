// Package filetype groups file extensions into broad categories used for
// filtering search results and summarizing the index.
package filetype

import (
	"path/filepath"
	"sort"
	"strings"
)

// Other is the category of any extension not listed in ExtensionToCategory.
const Other = "Other"

// ExtensionToCategory maps lowercased extensions (without dot) to category names.
var ExtensionToCategory = map[string]string{
	// Documents
	"pdf": "Documents", "doc": "Documents", "docx": "Documents",
	"txt": "Documents", "rtf": "Documents", "odt": "Documents", "md": "Documents",
	// Images
	"jpg": "Images", "jpeg": "Images", "png": "Images", "gif": "Images",
	"bmp": "Images", "svg": "Images", "webp": "Images", "heic": "Images", "tiff": "Images",
	// Code
	"js": "Code", "ts": "Code", "py": "Code", "java": "Code", "go": "Code",
	"cpp": "Code", "c": "Code", "h": "Code", "cs": "Code", "rs": "Code",
	"html": "Code", "css": "Code", "json": "Code", "xml": "Code", "yaml": "Code", "yml": "Code",
	"sh": "Code", "ps1": "Code", "sql": "Code",
	// Archives
	"zip": "Archives", "rar": "Archives", "7z": "Archives",
	"tar": "Archives", "gz": "Archives", "bz2": "Archives", "xz": "Archives",
	// Spreadsheets
	"xlsx": "Spreadsheets", "xls": "Spreadsheets", "csv": "Spreadsheets", "ods": "Spreadsheets",
	// Presentations
	"ppt": "Presentations", "pptx": "Presentations", "odp": "Presentations", "key": "Presentations",
	// Videos
	"mp4": "Videos", "avi": "Videos", "mkv": "Videos", "mov": "Videos",
	"wmv": "Videos", "flv": "Videos", "webm": "Videos",
	// Audio
	"mp3": "Audio", "wav": "Audio", "flac": "Audio", "m4a": "Audio",
	"aac": "Audio", "ogg": "Audio",
}

// Categorize returns the category for an extension such as ".pdf" or "pdf".
// Returns Other if the extension is not recognized.
func Categorize(extension string) string {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	if category, ok := ExtensionToCategory[ext]; ok {
		return category
	}
	return Other
}

// CategorizePath returns the category of a file path based on its extension.
func CategorizePath(filePath string) string {
	return Categorize(filepath.Ext(filePath))
}

// IsCategory reports whether name is a known category (case-insensitive).
func IsCategory(name string) bool {
	if strings.EqualFold(name, Other) {
		return true
	}
	for _, category := range ExtensionToCategory {
		if strings.EqualFold(category, name) {
			return true
		}
	}
	return false
}

// Matches reports whether extension satisfies filter. The filter is either a
// category name ("Images") or an extension (".png" or "png"). An empty filter
// matches everything.
func Matches(extension string, filter string) bool {
	if filter == "" {
		return true
	}
	if IsCategory(filter) {
		return strings.EqualFold(Categorize(extension), filter)
	}
	want := strings.ToLower(strings.TrimPrefix(filter, "."))
	return strings.ToLower(strings.TrimPrefix(extension, ".")) == want
}

// Categories returns all category names in sorted order, Other last.
func Categories() []string {
	seen := make(map[string]bool)
	var names []string
	for _, category := range ExtensionToCategory {
		if !seen[category] {
			seen[category] = true
			names = append(names, category)
		}
	}
	sort.Strings(names)
	return append(names, Other)
}
