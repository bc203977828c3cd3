package server

import (
	"github.com/lexandro/filefind-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Handlers groups the tool handlers registered on the server.
type Handlers struct {
	Search      *tools.SearchHandler
	Files       *tools.FilesHandler
	Status      *tools.StatusHandler
	Reindex     *tools.ReindexHandler
	Directories *tools.DirectoriesHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(handlers Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "filefind-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server finds files on the local machine by name using a persisted index that is kept current by a filesystem watcher. Its tools answer from memory and are much faster than find, locate or recursive listing.

- Use filefind_search to find files when you know roughly what they are called (typos and word reordering are tolerated)
- Use filefind_files to list files by exact name pattern or directory, optionally newest first
- Use filefind_directories to see or change which directories are indexed
- Use filefind_reindex after large changes made while the server was not running`,
		},
	)

	// Register filefind_search tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "filefind_search",
		Description: `Fuzzy search for files by name. Results are ranked by name similarity (70%) and recency of modification (30%).

Filtering:
  - type: a category (Documents, Images, Code, Archives, Spreadsheets, Presentations, Videos, Audio) or an extension (e.g. ".pdf")
  - modifiedWithin: today, week, month or year
  - directory: only files below this absolute directory`,
	}, handlers.Search.Handle)

	// Register filefind_files tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "filefind_files",
		Description: `List indexed files by name pattern, path pattern or directory.

A pattern without a slash matches file names anywhere; with a slash it matches absolute paths.

Examples:
  - pattern "*.pdf" - every PDF
  - pattern "invoice_*" - files named invoice_ something
  - pattern "**/2024/*.jpg" - JPEGs in any directory named 2024
  - directory "/home/me/Downloads", newest true - latest downloads first`,
	}, handlers.Files.Handle)

	// Register filefind_status tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "filefind_status",
		Description: "Show index status: file count, query cache statistics, watched directories, file types, memory usage and uptime.",
	}, handlers.Status.Handle)

	// Register filefind_reindex tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "filefind_reindex",
		Description: "Force a full re-index of every configured directory. Clears the stored index and rebuilds it from disk.",
	}, handlers.Reindex.Handle)

	// Register filefind_directories tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "filefind_directories",
		Description: "List, add or remove indexed directories. Adding scans the directory and starts watching it; removing drops its files from the index. Changes are saved to the settings file.",
	}, handlers.Directories.Handle)

	return mcpServer
}
