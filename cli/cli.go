// Package cli implements the one-shot subcommands that run without the MCP
// server: index, search and stats.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/lexandro/filefind-mcp/search"
	"github.com/lexandro/filefind-mcp/settings"
	"github.com/lexandro/filefind-mcp/store"
)

// ErrUnknownCommand is returned by Run for a name that is not a subcommand.
var ErrUnknownCommand = errors.New("unknown command")

// ScanFunc walks dirs and writes every eligible file to the store.
// It returns the number of files written.
type ScanFunc func(ctx context.Context, dirs []string) (int, error)

// Env carries what the subcommands need.
type Env struct {
	Stdout        io.Writer
	Stderr        io.Writer
	Store         *store.SQLiteStore
	DBPath        string
	Settings      *settings.Settings
	Scan          ScanFunc
	SearchOptions search.Options
}

// IsCommand reports whether name is a subcommand handled by Run.
func IsCommand(name string) bool {
	switch name {
	case "index", "search", "stats":
		return true
	}
	return false
}

// Run executes the named subcommand. args excludes the subcommand name.
func Run(ctx context.Context, name string, args []string, env Env) error {
	switch name {
	case "index":
		return runIndex(ctx, args, env)
	case "search":
		return runSearch(ctx, args, env)
	case "stats":
		return runStats(ctx, args, env)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}

// PrintUsage writes the subcommand summary to w.
func PrintUsage(w io.Writer, binaryPath string) {
	binaryName := filepath.Base(binaryPath)
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s [flags]                        # run the MCP server on stdio\n", binaryName)
	fmt.Fprintf(w, "  %s index [-clear] [-save] [dir...] # index directories (default: configured)\n", binaryName)
	fmt.Fprintf(w, "  %s search [-limit N] <query>       # search the index by file name\n", binaryName)
	fmt.Fprintf(w, "  %s stats                           # show index statistics\n", binaryName)
}
