package search

import (
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/lexandro/filefind-mcp/index"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxResults caps the ranked result list.
	DefaultMaxResults = 50
	// DefaultFuzzyThreshold drops candidates whose name similarity is lower.
	DefaultFuzzyThreshold = 60.0

	fuzzyWeight   = 0.7
	recencyWeight = 0.3

	// Candidate sets smaller than this are scored on the calling goroutine.
	parallelThreshold = 2048
)

// Result is a ranked match. It is derived per query and never persisted.
type Result struct {
	index.FileRecord
	Score float64 `json:"score"`
}

// Options configures an Engine.
type Options struct {
	MaxResults int
	Threshold  float64
	Now        func() time.Time // clock used for recency; defaults to time.Now
}

// Engine ranks file records against a query. It holds no mutable state and
// performs no I/O, so one Engine may serve concurrent searches.
type Engine struct {
	maxResults int
	threshold  float64
	now        func() time.Time
}

// NewEngine creates an Engine, filling unset options with defaults.
func NewEngine(options Options) *Engine {
	if options.MaxResults <= 0 {
		options.MaxResults = DefaultMaxResults
	}
	if options.Threshold <= 0 {
		options.Threshold = DefaultFuzzyThreshold
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Engine{
		maxResults: options.MaxResults,
		threshold:  options.Threshold,
		now:        options.Now,
	}
}

// MaxResults returns the configured result cap.
func (e *Engine) MaxResults() int {
	return e.maxResults
}

// Search returns candidates matching query, ordered by descending score.
// The score blends 70% name similarity with 30% recency. Equal scores are
// ordered by path so results are deterministic. An empty query or candidate
// set yields no results.
func (e *Engine) Search(query string, candidates []index.FileRecord) []Result {
	query = NormalizeQuery(query)
	if query == "" || len(candidates) == 0 {
		return []Result{}
	}

	now := e.now()
	results := e.scoreAll(query, candidates, now)
	if len(results) == 0 {
		return []Result{}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})

	if len(results) > e.maxResults {
		results = results[:e.maxResults]
	}
	return results
}

// scoreAll scores every candidate, splitting large sets across goroutines.
func (e *Engine) scoreAll(query string, candidates []index.FileRecord, now time.Time) []Result {
	if len(candidates) < parallelThreshold {
		return e.scoreChunk(query, candidates, now)
	}

	workers := runtime.GOMAXPROCS(0)
	chunkSize := (len(candidates) + workers - 1) / workers
	chunks := make([][]Result, workers)

	var group errgroup.Group
	group.SetLimit(workers)
	for w := 0; w < workers; w++ {
		lo := w * chunkSize
		if lo >= len(candidates) {
			break
		}
		hi := min(lo+chunkSize, len(candidates))
		group.Go(func() error {
			chunks[w] = e.scoreChunk(query, candidates[lo:hi], now)
			return nil
		})
	}
	group.Wait() // scoring never fails

	var results []Result
	for _, chunk := range chunks {
		results = append(results, chunk...)
	}
	return results
}

func (e *Engine) scoreChunk(query string, candidates []index.FileRecord, now time.Time) []Result {
	var results []Result
	for _, candidate := range candidates {
		similarity := WRatio(query, strings.ToLower(candidate.Name))
		if similarity < e.threshold {
			continue
		}
		results = append(results, Result{
			FileRecord: candidate,
			Score:      fuzzyWeight*similarity + recencyWeight*RecencyScore(candidate.ModifiedTime, now),
		})
	}
	return results
}
