// Package cache holds completed analyses in memory, keyed by analysis_id,
// so that the read endpoints (graph/matrix/clusters/raw AST) can serve a
// previously-computed response without recomputation.
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/plagscan/internal/fingerprint"
	"github.com/standardbeagle/plagscan/internal/orchestrate"
)

// shardCount is fixed rather than configurable: the store's working set is
// one process's in-flight analyses, not a scale problem that needs tuning.
const shardCount = 16

type shard struct {
	mu           sync.RWMutex
	responses    map[string]*orchestrate.Response
	fingerprints map[string]map[string]*fingerprint.FileFingerprint
}

// Store is a concurrency-safe, insert-once map from analysis_id to its
// Response and underlying fingerprints. It is split into xxhash-keyed
// shards so that one request's read doesn't block another's concurrent
// write to an unrelated analysis_id.
type Store struct {
	shards [shardCount]*shard
}

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{
			responses:    make(map[string]*orchestrate.Response),
			fingerprints: make(map[string]map[string]*fingerprint.FileFingerprint),
		}
	}
	return s
}

func (s *Store) shardFor(analysisID string) *shard {
	return s.shards[xxhash.Sum64String(analysisID)%shardCount]
}

// ErrAlreadyExists is returned by Insert when analysis_id is already
// present: entries are insert-once, never overwritten.
type ErrAlreadyExists struct{ AnalysisID string }

func (e *ErrAlreadyExists) Error() string {
	return "analysis " + e.AnalysisID + " already cached"
}

// Insert stores resp and its per-file fingerprints under resp.AnalysisID.
func (s *Store) Insert(resp *orchestrate.Response, fingerprints map[string]*fingerprint.FileFingerprint) error {
	sh := s.shardFor(resp.AnalysisID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.responses[resp.AnalysisID]; exists {
		return &ErrAlreadyExists{AnalysisID: resp.AnalysisID}
	}
	sh.responses[resp.AnalysisID] = resp
	sh.fingerprints[resp.AnalysisID] = fingerprints
	return nil
}

// Get retrieves a cached Response by analysis_id.
func (s *Store) Get(analysisID string) (*orchestrate.Response, bool) {
	sh := s.shardFor(analysisID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	resp, ok := sh.responses[analysisID]
	return resp, ok
}

// GetFingerprint retrieves one file's fingerprint from a cached analysis,
// for the raw-AST/advanced-compare endpoints.
func (s *Store) GetFingerprint(analysisID, path string) (*fingerprint.FileFingerprint, bool) {
	sh := s.shardFor(analysisID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	byPath, ok := sh.fingerprints[analysisID]
	if !ok {
		return nil, false
	}
	fp, ok := byPath[path]
	return fp, ok
}

// Delete evicts one cached analysis.
func (s *Store) Delete(analysisID string) {
	sh := s.shardFor(analysisID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.responses, analysisID)
	delete(sh.fingerprints, analysisID)
}

// Len reports the number of cached analyses across all shards.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.responses)
		sh.mu.RUnlock()
	}
	return total
}
