package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReindexArgs defines the input parameters for the filefind_reindex tool.
type ReindexArgs struct{}

// ReindexFunc clears the store, rescans every configured directory and reloads
// the service. It is provided by main.go to avoid circular dependencies.
type ReindexFunc func(ctx context.Context) (indexedCount int, err error)

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	DoReindex ReindexFunc
	Logger    *slog.Logger
}

// Handle processes a filefind_reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("filefind_reindex started")
	start := time.Now()

	indexedCount, err := h.DoReindex(ctx)
	if err != nil {
		h.Logger.Error("filefind_reindex failed", "error", err)
		return errorResult("Reindex error: %v", err), nil, nil
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	h.Logger.Info("filefind_reindex complete",
		"files", indexedCount,
		"elapsed", elapsed,
	)

	return textResult(fmt.Sprintf("reindexed: %d files in %s", indexedCount, elapsed)), nil, nil
}
