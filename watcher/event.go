package watcher

import "fmt"

// EventKind identifies the type of a file system change.
type EventKind int

const (
	Created EventKind = iota
	Modified
	Deleted
	Moved
	// DirectoryRemoved reports that a watched directory was deleted or renamed
	// away. Path is the directory; every file below it is gone.
	DirectoryRemoved
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Moved:
		return "moved"
	case DirectoryRemoved:
		return "directory removed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single file change. DestPath is set only for Moved events,
// where Path is the old location.
type Event struct {
	Kind     EventKind
	Path     string
	DestPath string
}

func (e Event) String() string {
	if e.Kind == Moved {
		return fmt.Sprintf("%s %s -> %s", e.Kind, e.Path, e.DestPath)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}
