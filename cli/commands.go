package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lexandro/filefind-mcp/index"
	"github.com/lexandro/filefind-mcp/search"
)

// runIndex scans directories into the store.
func runIndex(ctx context.Context, args []string, env Env) error {
	flags := flag.NewFlagSet("index", flag.ContinueOnError)
	flags.SetOutput(env.Stderr)
	clearIndex := flags.Bool("clear", false, "Clear existing index before indexing")
	save := flags.Bool("save", false, "Add the directories to the settings file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	dirs := flags.Args()
	if len(dirs) == 0 {
		dirs = env.Settings.IndexedDirectories()
		if len(dirs) == 0 {
			return errors.New("no directories given and none configured")
		}
		fmt.Fprintf(env.Stdout, "No directories specified. Using configured: %s\n", strings.Join(dirs, ", "))
	}

	absolute := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("directory %s does not exist", abs)
		}
		absolute = append(absolute, abs)
	}

	if *clearIndex {
		fmt.Fprintln(env.Stdout, "Clearing existing index...")
		if err := env.Store.Clear(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	count, err := env.Scan(ctx, absolute)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	elapsed := time.Since(start)

	if *save {
		for _, dir := range absolute {
			if _, _, err := env.Settings.AddDirectory(dir); err != nil {
				return fmt.Errorf("saving %s to settings: %w", dir, err)
			}
		}
	}

	fmt.Fprintf(env.Stdout, "Indexed %d files in %.2f seconds\n", count, elapsed.Seconds())
	fmt.Fprintf(env.Stdout, "  Database: %s\n", env.DBPath)
	return nil
}

// runSearch ranks the stored files against a query and prints the top results.
func runSearch(ctx context.Context, args []string, env Env) error {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	flags.SetOutput(env.Stderr)
	limit := flags.Int("limit", 10, "Maximum number of results")
	if err := flags.Parse(args); err != nil {
		return err
	}

	query := strings.Join(flags.Args(), " ")
	if search.NormalizeQuery(query) == "" {
		return errors.New("a query is required")
	}

	files, err := env.Store.LoadAllFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(env.Stdout, "No files indexed. Run 'index' command first.")
		return nil
	}

	start := time.Now()
	results := search.NewEngine(env.SearchOptions).Search(query, files)
	elapsed := time.Since(start)

	fmt.Fprintf(env.Stdout, "\nFound %d results in %.1fms:\n\n", len(results), float64(elapsed.Microseconds())/1000)
	if *limit > 0 && len(results) > *limit {
		results = results[:*limit]
	}
	for i, result := range results {
		fmt.Fprintf(env.Stdout, "%d. %s (score: %.1f)\n", i+1, result.Name, result.Score)
		fmt.Fprintf(env.Stdout, "   %s\n\n", result.Path)
	}
	return nil
}

// runStats prints the file count and the most common extensions.
func runStats(ctx context.Context, args []string, env Env) error {
	files, err := env.Store.LoadAllFiles(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "\nIndex Statistics\n")
	fmt.Fprintf(env.Stdout, "   Database: %s\n", env.DBPath)
	fmt.Fprintf(env.Stdout, "   Total files: %d\n", len(files))
	if len(files) == 0 {
		return nil
	}

	fileIndex := index.NewFileIndex()
	fileIndex.Load(files)

	type extensionEntry struct {
		extension string
		count     int
	}
	var entries []extensionEntry
	for extension, count := range fileIndex.ExtensionCounts() {
		if extension == "" {
			extension = "no extension"
		}
		entries = append(entries, extensionEntry{extension, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].extension < entries[j].extension
	})
	if len(entries) > 5 {
		entries = entries[:5]
	}

	fmt.Fprintf(env.Stdout, "\n   Top file types:\n")
	for _, entry := range entries {
		fmt.Fprintf(env.Stdout, "     %s: %d\n", entry.extension, entry.count)
	}
	return nil
}
