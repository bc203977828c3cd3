package search

import (
	"fmt"
	"sync"
	"testing"

	"github.com/lexandro/filefind-mcp/index"
)

func testResults(names ...string) []Result {
	results := make([]Result, 0, len(names))
	for i, name := range names {
		results = append(results, Result{
			FileRecord: index.FileRecord{Name: name, Path: "/" + name},
			Score:      float64(100 - i),
		})
	}
	return results
}

func Test_QueryCache_RoundTrip(t *testing.T) {
	c := NewQueryCache(10)
	want := testResults("a.txt", "b.txt")
	c.Set("query", want)

	got, ok := c.Get("query")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func Test_QueryCache_KeysAreNormalized(t *testing.T) {
	c := NewQueryCache(10)
	c.Set(" Foo ", testResults("foo.txt"))

	for _, q := range []string{"foo", "FOO", "  foo"} {
		if _, ok := c.Get(q); !ok {
			t.Errorf("expected %q to hit the normalized entry", q)
		}
	}
	if c.Stats().Size != 1 {
		t.Errorf("expected a single entry, got %d", c.Stats().Size)
	}
}

func Test_QueryCache_InvalidateAll(t *testing.T) {
	c := NewQueryCache(10)
	c.Set("q", testResults("a.txt"))
	c.InvalidateAll()

	if _, ok := c.Get("q"); ok {
		t.Error("expected miss after invalidation")
	}
	if c.Stats().Size != 0 {
		t.Errorf("expected empty cache after invalidation, got %d", c.Stats().Size)
	}
}

func Test_QueryCache_CountersSurviveInvalidation(t *testing.T) {
	c := NewQueryCache(10)
	c.Set("q", testResults("a.txt"))
	c.Get("q")       // hit
	c.Get("missing") // miss
	c.InvalidateAll()

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected hits=1 misses=1 after invalidation, got hits=%d misses=%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 50 {
		t.Errorf("expected hit rate 50, got %.2f", stats.HitRate)
	}
}

func Test_QueryCache_EvictsOldest(t *testing.T) {
	c := NewQueryCache(3)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("q%d", i), testResults("a.txt"))
	}
	c.Set("q3", testResults("b.txt"))

	stats := c.Stats()
	if stats.Size != 3 {
		t.Errorf("expected size to stay at max 3, got %d", stats.Size)
	}
	if _, ok := c.Get("q0"); ok {
		t.Error("expected first inserted key to be evicted")
	}
	for _, key := range []string{"q1", "q2", "q3"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %s to survive eviction", key)
		}
	}
}

func Test_QueryCache_SetIfGeneration(t *testing.T) {
	c := NewQueryCache(10)
	generation := c.Generation()
	c.InvalidateAll()

	if c.SetIfGeneration(generation, "q", testResults("stale.txt")) {
		t.Error("expected stale generation to be rejected")
	}
	if _, ok := c.Get("q"); ok {
		t.Error("expected no entry for a rejected set")
	}

	if !c.SetIfGeneration(c.Generation(), "q", testResults("fresh.txt")) {
		t.Error("expected current generation to be accepted")
	}
	if _, ok := c.Get("q"); !ok {
		t.Error("expected entry after accepted set")
	}
}

func Test_QueryCache_ReturnedSliceIsCopy(t *testing.T) {
	c := NewQueryCache(10)
	c.Set("q", testResults("a.txt"))

	got, _ := c.Get("q")
	got[0].Name = "mutated"

	again, _ := c.Get("q")
	if again[0].Name != "a.txt" {
		t.Errorf("expected cached entry to be unaffected, got %s", again[0].Name)
	}
}

func Test_QueryCache_DefaultSize(t *testing.T) {
	if got := NewQueryCache(0).Stats().MaxSize; got != DefaultCacheSize {
		t.Errorf("expected default max size %d, got %d", DefaultCacheSize, got)
	}
}

func Test_QueryCache_ConcurrentAccess(t *testing.T) {
	c := NewQueryCache(50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("q%d", (w*i)%120)
				c.Set(key, testResults("a.txt"))
				c.Get(key)
				if i%97 == 0 {
					c.InvalidateAll()
				}
				if size := c.Stats().Size; size > 50 {
					t.Errorf("cache grew past max size: %d", size)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
