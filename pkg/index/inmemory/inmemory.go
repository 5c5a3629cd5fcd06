// Package inmemory implements index.Store with a brute-force scan.
// It is the default backend for single-process deployments and tests.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/opencampus/sage/pkg/index"
)

// InMemory stores entries in a map and ranks by cosine similarity.
type InMemory struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]index.Entry
}

// New creates a new InMemory store. The dimension is fixed by the
// first upserted entry.
func New() *InMemory {
	return &InMemory{entries: make(map[string]index.Entry)}
}

// Upsert inserts or overwrites entries by id.
func (s *InMemory) Upsert(ctx context.Context, entries []index.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if len(e.Embedding) == 0 {
			return fmt.Errorf("entry %s has an empty embedding", e.ID)
		}
		if s.dimension == 0 {
			s.dimension = len(e.Embedding)
		}
		if len(e.Embedding) != s.dimension {
			return fmt.Errorf("entry %s has dimension %d, index uses %d", e.ID, len(e.Embedding), s.dimension)
		}
	}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

// Search scans the cluster's entries and returns the limit most
// similar by cosine similarity. Ties break on ascending entry id.
func (s *InMemory) Search(ctx context.Context, clusterID string, vector []float32, limit int) ([]index.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []index.SearchResult
	for _, e := range s.entries {
		if e.ClusterID != clusterID {
			continue
		}
		results = append(results, index.SearchResult{Entry: e, Score: cosine(vector, e.Embedding)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// DeleteCluster removes every entry of a cluster.
func (s *InMemory) DeleteCluster(ctx context.Context, clusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if e.ClusterID == clusterID {
			delete(s.entries, id)
		}
	}
	return nil
}

// Count returns the number of stored entries for a cluster.
func (s *InMemory) Count(ctx context.Context, clusterID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if e.ClusterID == clusterID {
			n++
		}
	}
	return n, nil
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
