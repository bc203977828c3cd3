package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/filefind-mcp/search"
	"github.com/lexandro/filefind-mcp/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the filefind_search tool.
type SearchArgs struct {
	Query          string `json:"query" jsonschema:"File name to look for. Matching is fuzzy and case-insensitive"`
	Type           string `json:"type,omitempty" jsonschema:"Optional file type filter: a category (Documents, Images, Code, Archives, Spreadsheets, Presentations, Videos, Audio) or an extension such as .pdf"`
	ModifiedWithin string `json:"modifiedWithin,omitempty" jsonschema:"Optional recency filter: today, week, month or year"`
	Directory      string `json:"directory,omitempty" jsonschema:"Optional absolute directory; only files below it are returned"`
	MaxResults     int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Service *service.Service
	Logger  *slog.Logger
	Now     func() time.Time // defaults to time.Now
}

// Handle processes a filefind_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if search.NormalizeQuery(args.Query) == "" {
		h.Logger.Warn("filefind_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	filter := search.Filter{
		Type:           args.Type,
		ModifiedWithin: args.ModifiedWithin,
		Directory:      args.Directory,
	}
	if err := filter.Validate(); err != nil {
		return errorResult("Error: %v", err), nil, nil
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	results := filter.Apply(h.Service.Search(args.Query), now())
	total := len(results)
	if args.MaxResults > 0 && len(results) > args.MaxResults {
		results = results[:args.MaxResults]
	}

	h.Logger.Info("filefind_search",
		"query", args.Query,
		"type", args.Type,
		"modifiedWithin", args.ModifiedWithin,
		"results", len(results),
		"elapsed", time.Since(start),
	)

	return textResult(FormatSearchResults(args.Query, results, total)), nil, nil
}
