package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lexandro/filefind-mcp/cli"
	"github.com/lexandro/filefind-mcp/ignore"
	"github.com/lexandro/filefind-mcp/search"
	"github.com/lexandro/filefind-mcp/server"
	"github.com/lexandro/filefind-mcp/service"
	"github.com/lexandro/filefind-mcp/settings"
	"github.com/lexandro/filefind-mcp/store"
	"github.com/lexandro/filefind-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// stringList is a repeatable CLI flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ", ") }
func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// config is the merged result of the settings file and CLI flags.
type config struct {
	settings       *settings.Settings
	dbPath         string
	excludes       []string
	maxResults     int
	fuzzyThreshold float64
	cacheSize      int
	debounce       time.Duration
	syncInterval   time.Duration
	logLevel       string
	logFile        string
	watch          bool
}

func main() {
	// Parse CLI flags
	var settingsPath string
	var dbPath string
	var dirs stringList
	var excludes stringList
	var maxResults int
	var fuzzyThreshold float64
	var cacheSize int
	var debounce time.Duration
	var syncInterval time.Duration
	var logLevel string
	var logFile string
	var noWatch bool

	flag.StringVar(&settingsPath, "settings", "", "Settings file (default: ~/.filefind/settings.yaml)")
	flag.StringVar(&dbPath, "db", "", "SQLite database path (default: settings db_path or ~/.filefind/filefind.db)")
	flag.Var(&dirs, "dir", "Directory to index and watch (repeatable, overrides settings)")
	flag.Var(&excludes, "exclude", "Extra ignore pattern (repeatable)")
	flag.IntVar(&maxResults, "max-results", 0, "Max search results (default: settings or 50)")
	flag.Float64Var(&fuzzyThreshold, "fuzzy-threshold", 0, "Minimum name similarity 0-100 (default: settings or 60)")
	flag.IntVar(&cacheSize, "cache-size", 0, "Query cache entries (default: settings or 1000)")
	flag.DurationVar(&debounce, "debounce", 0, "Duplicate event window (default: settings or 500ms)")
	flag.DurationVar(&syncInterval, "sync-interval", -1, "Periodic sync interval, 0 disables (default: settings or 5m)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (default: ~/.filefind/filefind-mcp.log)")
	flag.BoolVar(&noWatch, "no-watch", false, "Disable live filesystem watching")
	flag.Usage = func() {
		cli.PrintUsage(os.Stderr, os.Args[0])
		fmt.Fprintf(os.Stderr, "\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// Load settings; flags override the file
	if settingsPath == "" {
		var err error
		settingsPath, err = settings.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving settings path: %v\n", err)
			os.Exit(1)
		}
	}
	userSettings, err := settings.Load(settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}

	cfg := mergeConfig(userSettings, dirs, excludes)
	if dbPath != "" {
		cfg.dbPath = dbPath
	}
	if maxResults > 0 {
		cfg.maxResults = maxResults
	}
	if fuzzyThreshold > 0 {
		cfg.fuzzyThreshold = fuzzyThreshold
	}
	if cacheSize > 0 {
		cfg.cacheSize = cacheSize
	}
	if debounce > 0 {
		cfg.debounce = debounce
	}
	if syncInterval >= 0 {
		cfg.syncInterval = syncInterval
	}
	cfg.logLevel = logLevel
	cfg.logFile = logFile
	cfg.watch = !noWatch

	if cfg.dbPath == "" {
		cfg.dbPath, err = store.DefaultDBPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving database path: %v\n", err)
			os.Exit(1)
		}
	}

	// Default log file: filefind-mcp.log next to the settings file
	if cfg.logFile == "" {
		cfg.logFile = filepath.Join(filepath.Dir(settingsPath), "filefind-mcp.log")
		os.MkdirAll(filepath.Dir(cfg.logFile), 0755)
	}

	// Setup logger (always to file or stderr, never to stdout - stdout is for MCP stdio)
	logger := setupLogger(cfg.logLevel, cfg.logFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args := flag.Args(); len(args) > 0 {
		os.Exit(runCommand(ctx, args[0], args[1:], cfg, logger))
	}

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}

// mergeConfig starts from the settings file and applies directory and exclude flags.
func mergeConfig(userSettings *settings.Settings, dirs []string, excludes []string) config {
	if len(dirs) > 0 {
		absolute := make([]string, 0, len(dirs))
		for _, dir := range dirs {
			if abs, err := filepath.Abs(dir); err == nil {
				absolute = append(absolute, abs)
			}
		}
		userSettings.Directories = absolute
	}

	return config{
		settings:       userSettings,
		dbPath:         userSettings.DBPath,
		excludes:       excludes,
		maxResults:     userSettings.MaxResults,
		fuzzyThreshold: userSettings.FuzzyThreshold,
		cacheSize:      userSettings.CacheSize,
		debounce:       userSettings.DebounceWindow(),
		syncInterval:   userSettings.SyncInterval(),
	}
}

// runCommand executes a one-shot CLI subcommand and returns the exit code.
func runCommand(ctx context.Context, name string, args []string, cfg config, logger *slog.Logger) int {
	if !cli.IsCommand(name) {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", name)
		cli.PrintUsage(os.Stderr, os.Args[0])
		return 1
	}

	fileStore, err := store.NewSQLiteStore(cfg.dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return 1
	}
	defer fileStore.Close()

	ignoreMatcher := newIgnoreMatcher(cfg, cfg.settings.IndexedDirectories())

	env := cli.Env{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Store:    fileStore,
		DBPath:   cfg.dbPath,
		Settings: cfg.settings,
		Scan: func(ctx context.Context, dirs []string) (int, error) {
			for _, dir := range dirs {
				ignoreMatcher.AddRoot(dir)
			}
			return performIndexing(ctx, dirs, fileStore, ignoreMatcher, logger)
		},
		SearchOptions: search.Options{
			MaxResults: cfg.maxResults,
			Threshold:  cfg.fuzzyThreshold,
		},
	}

	if err := cli.Run(ctx, name, args, env); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// serve runs the MCP server on stdio until the client disconnects or ctx is cancelled.
func serve(ctx context.Context, cfg config, logger *slog.Logger) error {
	dirs := cfg.settings.IndexedDirectories()
	logger.Info("starting filefind-mcp",
		"directories", dirs,
		"db", cfg.dbPath,
		"maxResults", cfg.maxResults,
		"fuzzyThreshold", cfg.fuzzyThreshold,
		"cacheSize", cfg.cacheSize,
		"debounce", cfg.debounce,
		"watch", cfg.watch,
	)

	startTime := time.Now()

	fileStore, err := store.NewSQLiteStore(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	ignoreMatcher := newIgnoreMatcher(cfg, dirs)

	svc := service.New(fileStore, service.Options{
		MaxResults:     cfg.maxResults,
		FuzzyThreshold: cfg.fuzzyThreshold,
		CacheSize:      cfg.cacheSize,
		DebounceWindow: cfg.debounce,
		Ignore:         ignoreMatcher,
	}, logger)
	defer svc.Close()

	// Build the store on first run, otherwise reconcile what changed while we were down
	storedCount, err := fileStore.FileCount(ctx)
	if err != nil {
		return err
	}
	if storedCount == 0 && len(dirs) > 0 {
		count, err := performIndexing(ctx, dirs, fileStore, ignoreMatcher, logger)
		if err != nil {
			return fmt.Errorf("initial indexing: %w", err)
		}
		logger.Info("initial indexing complete", "files", count, "duration", time.Since(startTime))
	}
	if err := svc.Load(ctx); err != nil {
		return fmt.Errorf("loading index: %w", err)
	}

	if cfg.watch && len(dirs) > 0 {
		svc.StartWatching(dirs)
	}

	if storedCount > 0 {
		go func() {
			logSyncResult(performSyncVerification(ctx, cfg.settings.IndexedDirectories(), svc, ignoreMatcher, logger), logger)
		}()
	}
	if cfg.syncInterval > 0 {
		go runPeriodicSync(ctx, cfg.syncInterval, cfg.settings.IndexedDirectories, svc, ignoreMatcher, logger)
	}

	restartWatching := func() {
		if !cfg.watch {
			return
		}
		svc.StopWatching()
		if dirs := cfg.settings.IndexedDirectories(); len(dirs) > 0 {
			svc.StartWatching(dirs)
		}
	}

	// Create tool handlers
	searchHandler := &tools.SearchHandler{Service: svc, Logger: logger}
	filesHandler := &tools.FilesHandler{FileIndex: svc.Files(), Logger: logger}
	statusHandler := &tools.StatusHandler{
		Service:   svc,
		StartTime: startTime,
		DBPath:    cfg.dbPath,
		Logger:    logger,
	}
	reindexHandler := &tools.ReindexHandler{
		Logger: logger,
		DoReindex: func(ctx context.Context) (int, error) {
			if err := fileStore.Clear(ctx); err != nil {
				return 0, fmt.Errorf("clearing store: %w", err)
			}
			// Reload ignore rules in case a .filefindignore changed
			ignoreMatcher.Reload()
			count, err := performIndexing(ctx, cfg.settings.IndexedDirectories(), fileStore, ignoreMatcher, logger)
			if err != nil {
				return count, err
			}
			return count, svc.Reload(ctx)
		},
	}
	directoriesHandler := &tools.DirectoriesHandler{
		List:   cfg.settings.IndexedDirectories,
		Logger: logger,
		Add: func(ctx context.Context, path string) (string, int, error) {
			absolute, added, err := cfg.settings.AddDirectory(path)
			if err != nil {
				return absolute, 0, err
			}
			if !added {
				return absolute, 0, fmt.Errorf("%s is already indexed", absolute)
			}
			ignoreMatcher.AddRoot(absolute)
			count, err := performIndexing(ctx, []string{absolute}, fileStore, ignoreMatcher, logger)
			if err != nil {
				return absolute, count, err
			}
			if err := svc.Reload(ctx); err != nil {
				return absolute, count, err
			}
			restartWatching()
			return absolute, count, nil
		},
		Remove: func(ctx context.Context, path string) (string, int, error) {
			absolute, removed, err := cfg.settings.RemoveDirectory(path)
			if err != nil {
				return absolute, 0, err
			}
			if !removed {
				return absolute, 0, fmt.Errorf("%s is not indexed", absolute)
			}
			ignoreMatcher.RemoveRoot(absolute)
			count, err := svc.RemoveDirectory(ctx, absolute)
			if err != nil {
				return absolute, 0, err
			}
			restartWatching()
			return absolute, count, nil
		},
	}

	// Setup and run MCP server on stdio
	mcpServer := server.Setup(server.Handlers{
		Search:      searchHandler,
		Files:       filesHandler,
		Status:      statusHandler,
		Reindex:     reindexHandler,
		Directories: directoriesHandler,
	})

	logger.Info("MCP server starting on stdio", "files", svc.Stats().Index.FileCount)
	return mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// newIgnoreMatcher builds the matcher shared by indexing, watching and sync.
func newIgnoreMatcher(cfg config, roots []string) *ignore.Matcher {
	return ignore.NewMatcher(ignore.MatcherOptions{
		Roots:          roots,
		ExcludedDirs:   cfg.settings.ExcludedDirs,
		CustomPatterns: cfg.excludes,
	})
}

// setupLogger creates an slog.Logger writing to stderr or a file.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writer *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
			writer = os.Stderr
		} else {
			writer = f
		}
	} else {
		writer = os.Stderr
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
