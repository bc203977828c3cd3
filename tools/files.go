package tools

import (
	"cmp"
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/lexandro/filefind-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultListLimit = 50

// FilesArgs defines the input parameters for the filefind_files tool.
type FilesArgs struct {
	Pattern   string `json:"pattern,omitempty" jsonschema:"Glob over file names (e.g. *.pdf) or, when it contains a slash, over absolute paths (e.g. **/2024/*.jpg)"`
	Directory string `json:"directory,omitempty" jsonschema:"Only list files below this directory"`
	Newest    bool   `json:"newest,omitempty" jsonschema:"Order by modification time, newest first, instead of by path"`
	PathsOnly bool   `json:"pathsOnly,omitempty" jsonschema:"Print bare paths without category and modification time"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of files to list (default 50)"`
}

// FilesHandler lists indexed files by glob and directory.
type FilesHandler struct {
	FileIndex *index.FileIndex
	Logger    *slog.Logger
}

// Handle processes a filefind_files request.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Pattern == "" && args.Directory == "" {
		return errorResult("Error: give a pattern, a directory, or both"), nil, nil
	}

	files, err := h.FileIndex.SearchByGlob(pathGlob(args.Pattern), 0)
	if err != nil {
		h.Logger.Warn("filefind_files rejected pattern", "pattern", args.Pattern, "error", err)
		return errorResult("Invalid pattern %q: %v", args.Pattern, err), nil, nil
	}

	if args.Directory != "" {
		dir, err := filepath.Abs(args.Directory)
		if err != nil {
			return errorResult("Invalid directory %q: %v", args.Directory, err), nil, nil
		}
		files = slices.DeleteFunc(files, func(f index.FileRecord) bool {
			return !strings.HasPrefix(f.Path, dir+string(filepath.Separator))
		})
	}

	if args.Newest {
		slices.SortStableFunc(files, func(a, b index.FileRecord) int {
			return cmp.Compare(b.ModifiedTime, a.ModifiedTime)
		})
	}

	total := len(files)
	limit := args.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(files) > limit {
		files = files[:limit]
	}

	h.Logger.Info("filefind_files",
		"pattern", args.Pattern,
		"directory", args.Directory,
		"matched", total,
		"elapsed", time.Since(start),
	)
	return textResult(FormatFileResults(files, total, args.PathsOnly)), nil, nil
}

// pathGlob turns a name pattern into one matching that name in any directory.
func pathGlob(pattern string) string {
	switch {
	case pattern == "":
		return "**"
	case strings.ContainsAny(pattern, `/\`):
		return pattern
	default:
		return "**/" + pattern
	}
}
