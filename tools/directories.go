package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DirectoriesArgs defines the input parameters for the filefind_directories tool.
type DirectoriesArgs struct {
	Action string `json:"action" jsonschema:"One of list, add or remove"`
	Path   string `json:"path,omitempty" jsonschema:"Directory to add or remove (required for add and remove)"`
}

// DirectoryChangeFunc adds or removes an indexed directory. It returns the
// absolute path and the number of files indexed or dropped.
type DirectoryChangeFunc func(ctx context.Context, path string) (absolutePath string, files int, err error)

// DirectoriesHandler holds the dependencies for the directories tool.
type DirectoriesHandler struct {
	List   func() []string
	Add    DirectoryChangeFunc
	Remove DirectoryChangeFunc
	Logger *slog.Logger
}

// Handle processes a filefind_directories request.
func (h *DirectoriesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args DirectoriesArgs) (*mcp.CallToolResult, any, error) {
	action := strings.ToLower(strings.TrimSpace(args.Action))

	switch action {
	case "", "list":
		dirs := h.List()
		h.Logger.Info("filefind_directories", "action", "list", "directories", len(dirs))
		if len(dirs) == 0 {
			return textResult("No directories are indexed."), nil, nil
		}
		var builder strings.Builder
		builder.WriteString(fmt.Sprintf("Indexed directories (%d):\n", len(dirs)))
		for _, dir := range dirs {
			builder.WriteString(fmt.Sprintf("  %s\n", dir))
		}
		return textResult(builder.String()), nil, nil

	case "add", "remove":
		if args.Path == "" {
			return errorResult("Error: path parameter is required for %s", action), nil, nil
		}
		change, verb := h.Add, "added"
		if action == "remove" {
			change, verb = h.Remove, "removed"
		}

		absolute, files, err := change(ctx, args.Path)
		if err != nil {
			h.Logger.Error("filefind_directories failed", "action", action, "path", args.Path, "error", err)
			return errorResult("Error: %v", err), nil, nil
		}
		h.Logger.Info("filefind_directories", "action", action, "path", absolute, "files", files)
		return textResult(fmt.Sprintf("%s: %s (%d files)", verb, absolute, files)), nil, nil

	default:
		return errorResult("Error: unknown action %q (want list, add or remove)", args.Action), nil, nil
	}
}
