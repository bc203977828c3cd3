package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lexandro/filefind-mcp/index"
	"github.com/lexandro/filefind-mcp/store"
	"github.com/lexandro/filefind-mcp/watcher"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "files.db"))
	if err != nil {
		t.Fatal(err)
	}
	svc := New(st, Options{DebounceWindow: 20 * time.Millisecond}, testLogger())
	t.Cleanup(func() { svc.Close() })
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return svc, st
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func Test_Service_CreateSearchDelete(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "resume.pdf")
	writeFile(t, path)
	if !svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: path}) {
		t.Fatal("expected create to change the index")
	}

	results := svc.Search("resum")
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Name != "resume.pdf" {
		t.Errorf("expected resume.pdf, got %s", results[0].Name)
	}
	if results[0].Score < 60 {
		t.Errorf("expected score >= 60, got %f", results[0].Score)
	}

	os.Remove(path)
	if !svc.Apply(ctx, watcher.Event{Kind: watcher.Deleted, Path: path}) {
		t.Fatal("expected delete to change the index")
	}
	if results := svc.Search("resum"); len(results) != 0 {
		t.Errorf("expected no results after delete, got %v", results)
	}

	count, _ := st.FileCount(ctx)
	if count != 0 {
		t.Errorf("expected store to be empty, got %d rows", count)
	}
}

func Test_Service_CacheHitThenInvalidatedByModify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path)
	svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: path})

	first := svc.Search("a")
	if len(first) != 1 {
		t.Fatalf("expected 1 result, got %d", len(first))
	}
	before := svc.Stats().Cache

	second := svc.Search("a")
	afterHit := svc.Stats().Cache
	if afterHit.Hits != before.Hits+1 {
		t.Errorf("expected hits to increase by 1, got %d -> %d", before.Hits, afterHit.Hits)
	}
	if len(second) != 1 || second[0] != first[0] {
		t.Errorf("expected identical cached results, got %v vs %v", second, first)
	}

	old := time.Now().Add(-10 * 24 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	svc.Apply(ctx, watcher.Event{Kind: watcher.Modified, Path: path})

	third := svc.Search("a")
	afterModify := svc.Stats().Cache
	if afterModify.Misses != afterHit.Misses+1 {
		t.Errorf("expected misses to increase by 1, got %d -> %d", afterHit.Misses, afterModify.Misses)
	}
	if len(third) != 1 {
		t.Fatalf("expected 1 result, got %d", len(third))
	}
	if third[0].Score >= first[0].Score {
		t.Errorf("expected older file to score lower, got %f then %f", first[0].Score, third[0].Score)
	}
	if third[0].ModifiedTime != old.Unix() {
		t.Errorf("expected modified time %d, got %d", old.Unix(), third[0].ModifiedTime)
	}
}

func Test_Service_QueryNormalizationSharesCacheEntry(t *testing.T) {
	svc, _ := newTestService(t)
	path := filepath.Join(t.TempDir(), "foo.txt")
	writeFile(t, path)
	svc.Apply(context.Background(), watcher.Event{Kind: watcher.Created, Path: path})

	svc.Search("Foo")
	svc.Search(" foo ")
	svc.Search("foo")

	stats := svc.Stats().Cache
	if stats.Misses != 1 || stats.Hits != 2 {
		t.Errorf("expected 1 miss and 2 hits, got %d misses and %d hits", stats.Misses, stats.Hits)
	}
}

func Test_Service_EmptyQuery(t *testing.T) {
	svc, _ := newTestService(t)
	results := svc.Search("   ")
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func Test_Service_VanishedFileIsDropped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "keep.txt")
	writeFile(t, path)
	svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: path})
	svc.Search("keep")
	generation := svc.cache.Generation()

	missing := filepath.Join(t.TempDir(), "gone.txt")
	if svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: missing}) {
		t.Error("expected vanished file to be dropped")
	}
	if svc.cache.Generation() != generation {
		t.Error("expected no cache invalidation for a dropped event")
	}
	if svc.Files().FileCount() != 1 {
		t.Errorf("expected 1 file, got %d", svc.Files().FileCount())
	}
}

func Test_Service_ModifyOfUnknownFileAddsIt(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "late.txt")
	writeFile(t, path)
	if !svc.Apply(ctx, watcher.Event{Kind: watcher.Modified, Path: path}) {
		t.Fatal("expected modify of an unknown file to add it")
	}
	if _, ok := svc.Files().GetFile(path); !ok {
		t.Error("expected file in index")
	}
	count, _ := st.FileCount(ctx)
	if count != 1 {
		t.Errorf("expected 1 row in store, got %d", count)
	}
}

func Test_Service_Move(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()

	from := filepath.Join(dir, "draft.txt")
	to := filepath.Join(dir, "final.txt")
	writeFile(t, from)
	svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: from})

	if err := os.Rename(from, to); err != nil {
		t.Fatal(err)
	}
	svc.Apply(ctx, watcher.Event{Kind: watcher.Moved, Path: from, DestPath: to})

	if _, ok := svc.Files().GetFile(from); ok {
		t.Error("expected old path to be removed")
	}
	if _, ok := svc.Files().GetFile(to); !ok {
		t.Error("expected new path to be added")
	}
}

func Test_Service_MoveWithVanishedDestination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()

	from := filepath.Join(dir, "temp.txt")
	writeFile(t, from)
	svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: from})
	os.Remove(from)

	to := filepath.Join(dir, "never-existed.txt")
	if !svc.Apply(ctx, watcher.Event{Kind: watcher.Moved, Path: from, DestPath: to}) {
		t.Error("expected the delete half to apply")
	}
	if svc.Files().FileCount() != 0 {
		t.Errorf("expected empty index, got %d files", svc.Files().FileCount())
	}
}

func Test_Service_LoadFromStore(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "files.db"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	st.UpsertFiles(ctx, []index.FileRecord{
		index.NewFileRecord("/docs/budget.xlsx", time.Now()),
		index.NewFileRecord("/docs/notes.md", time.Now()),
	})

	svc := New(st, Options{}, testLogger())
	defer svc.Close()
	if err := svc.Load(ctx); err != nil {
		t.Fatal(err)
	}

	stats := svc.Stats().Index
	if stats.FileCount != 2 || !stats.IsLoaded {
		t.Errorf("expected 2 loaded files, got %+v", stats)
	}
	if results := svc.Search("budget"); len(results) != 1 {
		t.Errorf("expected 1 result for budget, got %d", len(results))
	}
}

func Test_Service_RemoveDirectory(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()

	inside := filepath.Join(dir, "work", "plan.txt")
	outside := filepath.Join(dir, "home", "plan.txt")
	writeFile(t, inside)
	writeFile(t, outside)
	svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: inside})
	svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: outside})

	n, err := svc.RemoveDirectory(ctx, filepath.Join(dir, "work"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 removed row, got %d", n)
	}
	if results := svc.Search("plan"); len(results) != 1 || results[0].Path != outside {
		t.Errorf("expected only %s, got %v", outside, results)
	}
	count, _ := st.FileCount(ctx)
	if count != 1 {
		t.Errorf("expected 1 row in store, got %d", count)
	}
}

// failingStore rejects every write.
type failingStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingStore) UpsertFile(context.Context, index.FileRecord) error { return errStoreDown }
func (failingStore) UpdateFile(context.Context, string, index.FileRecord) (bool, error) {
	return false, errStoreDown
}
func (failingStore) DeleteFile(context.Context, string) (bool, error)         { return false, errStoreDown }
func (failingStore) DeleteUnder(context.Context, string) (int, error)         { return 0, errStoreDown }
func (failingStore) LoadAllFiles(context.Context) ([]index.FileRecord, error) { return nil, nil }
func (failingStore) Close() error                                             { return nil }

func Test_Service_StoreFailureLeavesIndexUntouched(t *testing.T) {
	svc := New(failingStore{}, Options{}, testLogger())
	defer svc.Close()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "report.txt")
	writeFile(t, path)

	if svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: path}) {
		t.Error("expected failed store write to drop the event")
	}
	if svc.Files().FileCount() != 0 {
		t.Error("expected index to stay empty when the store write fails")
	}
	if _, err := svc.RemoveDirectory(ctx, "/anything"); err == nil {
		t.Error("expected RemoveDirectory to report the store error")
	}
}

func Test_Service_WatchingLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	dir := t.TempDir()

	if svc.Watching() {
		t.Fatal("expected not watching initially")
	}
	if !svc.StartWatching([]string{dir}) {
		t.Fatal("expected StartWatching to succeed")
	}
	if svc.StartWatching([]string{dir}) {
		t.Error("expected second StartWatching to be a no-op")
	}
	if !svc.Watching() {
		t.Error("expected watching after start")
	}
	if dirs := svc.Stats().WatchedDirectories; len(dirs) != 1 {
		t.Errorf("expected 1 watched directory, got %v", dirs)
	}

	svc.StopWatching()
	svc.StopWatching()
	if svc.Watching() {
		t.Error("expected not watching after stop")
	}

	if svc.StartWatching([]string{filepath.Join(dir, "missing")}) {
		t.Error("expected StartWatching on a missing directory to fail")
	}
}

func Test_Service_WatcherEventsReachIndex(t *testing.T) {
	svc, _ := newTestService(t)
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !svc.StartWatching([]string{dir}) {
		t.Fatal("expected StartWatching to succeed")
	}

	path := filepath.Join(dir, "invoice.pdf")
	writeFile(t, path)

	deadline := time.Now().Add(3 * time.Second)
	for {
		if results := svc.Search("invoice"); len(results) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for watcher event to reach the index")
		}
		time.Sleep(20 * time.Millisecond)
	}

	os.Remove(path)
	deadline = time.Now().Add(3 * time.Second)
	for {
		if results := svc.Search("invoice"); len(results) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for delete to reach the index")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func Test_Service_ConcurrentSearchAndApply(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()

	paths := make([]string, 20)
	for i := range paths {
		paths[i] = filepath.Join(dir, "file"+string(rune('a'+i))+".txt")
		writeFile(t, paths[i])
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, p := range paths {
			svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: p})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			svc.Search("file")
		}
	}()
	wg.Wait()

	// A final search must reflect every applied event.
	results := svc.Search("file")
	if len(results) != len(paths) {
		t.Errorf("expected %d results, got %d", len(paths), len(results))
	}
}

// pausingStore blocks LoadAllFiles after reading until released.
type pausingStore struct {
	*store.SQLiteStore
	reading chan struct{}
	release chan struct{}
}

func (p *pausingStore) LoadAllFiles(ctx context.Context) ([]index.FileRecord, error) {
	records, err := p.SQLiteStore.LoadAllFiles(ctx)
	close(p.reading)
	<-p.release
	return records, err
}

func Test_Service_ReloadKeepsConcurrentDelete(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "files.db"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "resume.pdf")
	writeFile(t, path)
	info, _ := os.Stat(path)
	if err := st.UpsertFile(ctx, index.NewFileRecord(path, info.ModTime())); err != nil {
		t.Fatal(err)
	}

	paused := &pausingStore{SQLiteStore: st, reading: make(chan struct{}), release: make(chan struct{})}
	svc := New(paused, Options{}, testLogger())
	defer svc.Close()

	loadErr := make(chan error, 1)
	go func() { loadErr <- svc.Reload(ctx) }()
	<-paused.reading

	os.Remove(path)
	applied := make(chan struct{})
	go func() {
		svc.Apply(ctx, watcher.Event{Kind: watcher.Deleted, Path: path})
		close(applied)
	}()

	// Give the delete a chance to run while the store read is paused
	time.Sleep(50 * time.Millisecond)
	close(paused.release)
	if err := <-loadErr; err != nil {
		t.Fatal(err)
	}
	<-applied

	if _, ok := svc.Files().GetFile(path); ok {
		t.Error("expected deleted file to stay out of the index after reload")
	}
	if results := svc.Search("resum"); len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
	if count, _ := st.FileCount(ctx); count != 0 {
		t.Errorf("expected empty store, got %d rows", count)
	}
}

func Test_Service_DirectoryRemovedDropsChildren(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()

	inside := filepath.Join(dir, "Photos", "trip", "beach.jpg")
	sibling := filepath.Join(dir, "Photos2", "beach.jpg")
	writeFile(t, inside)
	writeFile(t, sibling)
	svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: inside})
	svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: sibling})
	svc.Search("beach")

	if !svc.Apply(ctx, watcher.Event{Kind: watcher.DirectoryRemoved, Path: filepath.Join(dir, "Photos")}) {
		t.Fatal("expected directory removal to change the index")
	}
	if results := svc.Search("beach"); len(results) != 1 || results[0].Path != sibling {
		t.Errorf("expected only %s, got %v", sibling, results)
	}
	if count, _ := st.FileCount(ctx); count != 1 {
		t.Errorf("expected 1 row in store, got %d", count)
	}

	if svc.Apply(ctx, watcher.Event{Kind: watcher.DirectoryRemoved, Path: filepath.Join(dir, "Photos")}) {
		t.Error("expected second removal to be a no-op")
	}
}

func Test_Service_WatchedDirectoryRename(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(dir, "Photos", "beach.jpg")
	newPath := filepath.Join(dir, "Pictures", "beach.jpg")
	writeFile(t, oldPath)
	svc.Apply(ctx, watcher.Event{Kind: watcher.Created, Path: oldPath})

	if !svc.StartWatching([]string{dir}) {
		t.Fatal("expected StartWatching to succeed")
	}
	if err := os.Rename(filepath.Join(dir, "Photos"), filepath.Join(dir, "Pictures")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		_, oldKnown := svc.Files().GetFile(oldPath)
		_, newKnown := svc.Files().GetFile(newPath)
		if !oldKnown && newKnown {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for rename: old indexed=%v new indexed=%v", oldKnown, newKnown)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if results := svc.Search("beach"); len(results) != 1 || results[0].Path != newPath {
		t.Errorf("expected only %s, got %v", newPath, results)
	}
}
