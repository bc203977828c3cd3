package tools

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexandro/filefind-mcp/service"
	"github.com/lexandro/filefind-mcp/store"
	"github.com/lexandro/filefind-mcp/watcher"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService returns a loaded service and a directory whose files can be
// added with addTestFile.
func newTestService(t *testing.T) (*service.Service, string) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "files.db"))
	if err != nil {
		t.Fatal(err)
	}
	svc := service.New(st, service.Options{}, testLogger())
	t.Cleanup(func() { svc.Close() })
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return svc, t.TempDir()
}

// addTestFile creates dir/rel with the given age and applies it to svc.
func addTestFile(t *testing.T, svc *service.Service, dir, rel string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	modTime := time.Now().Add(-age)
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal(err)
	}
	if !svc.Apply(context.Background(), watcher.Event{Kind: watcher.Created, Path: path}) {
		t.Fatalf("failed to apply %s", path)
	}
	return path
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	return result.Content[0].(*mcp.TextContent).Text
}
