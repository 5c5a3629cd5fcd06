// Package index stores chunk embeddings and answers per-cluster
// similarity queries.
package index

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmbedderUnavailable is returned when the embedding upstream fails,
// so callers can tell an unreachable embedding API apart from a storage
// fault.
var ErrEmbedderUnavailable = errors.New("embedding upstream unavailable")

// Entry is the persisted unit of the vector index: one chunk of one
// cluster together with its embedding. Entries are never mutated after
// being written; re-ingestion overwrites them by id.
type Entry struct {
	ID        string    `json:"id"`
	ClusterID string    `json:"cluster_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// SearchResult is an Entry with its similarity score.
type SearchResult struct {
	Entry
	Score float32 `json:"score"`
}

// Embedder is the interface for generating embeddings. Implementations
// must preserve order: output i corresponds to input i. Dimensionality
// must be constant for the lifetime of the index.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the interface for persisting vectors and searching them.
// All ranking is by cosine similarity; the cluster id is a hard filter,
// never an approximation.
type Store interface {
	// Upsert inserts or overwrites entries by id.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns at most limit entries of one cluster, most similar
	// first. Ties break on ascending entry id so identical state yields
	// identical order.
	Search(ctx context.Context, clusterID string, vector []float32, limit int) ([]SearchResult, error)
	// DeleteCluster removes every entry of a cluster.
	DeleteCluster(ctx context.Context, clusterID string) error
	// Count returns the number of stored entries for a cluster.
	Count(ctx context.Context, clusterID string) (int, error)
}

// EntryID derives the deterministic id of chunk i of a cluster.
// Re-ingesting the same cluster with the same chunking reproduces the
// same ids, which makes retries overwrite instead of duplicate.
func EntryID(clusterID string, i int) string {
	return fmt.Sprintf("%s_%d", clusterID, i)
}

// Index combines an Embedder and a Store.
type Index struct {
	Embedder Embedder
	Store    Store
}

// New creates a new Index.
func New(embedder Embedder, store Store) *Index {
	return &Index{Embedder: embedder, Store: store}
}

// Add embeds chunks in one ordered batch and upserts one entry per
// chunk. It returns the number of entries written.
func (ix *Index) Add(ctx context.Context, clusterID string, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := ix.Embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to embed chunks: %v", ErrEmbedderUnavailable, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]Entry, len(chunks))
	for i, text := range chunks {
		entries[i] = Entry{
			ID:        EntryID(clusterID, i),
			ClusterID: clusterID,
			Content:   text,
			Embedding: vectors[i],
		}
	}

	if err := ix.Store.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to upsert entries: %w", err)
	}
	return len(entries), nil
}

// Replace removes all existing entries for the cluster and then adds
// the given chunks. This keeps a shrinking document from leaking stale
// chunks that a pure upsert would leave behind.
func (ix *Index) Replace(ctx context.Context, clusterID string, chunks []string) (int, error) {
	if err := ix.Store.DeleteCluster(ctx, clusterID); err != nil {
		return 0, fmt.Errorf("failed to clear cluster %s: %w", clusterID, err)
	}
	return ix.Add(ctx, clusterID, chunks)
}

// Query embeds the query text once and returns the content of the topK
// most similar entries within the cluster, most relevant first. A
// cluster with no entries yields an empty result, not an error.
func (ix *Index) Query(ctx context.Context, clusterID, text string, topK int) ([]string, error) {
	if topK < 1 {
		return nil, fmt.Errorf("topK must be at least 1, got %d", topK)
	}

	vectors, err := ix.Embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", ErrEmbedderUnavailable, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 query", len(vectors))
	}

	results, err := ix.Store.Search(ctx, clusterID, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search failed for cluster %s: %w", clusterID, err)
	}

	chunks := make([]string, len(results))
	for i, r := range results {
		chunks[i] = r.Content
	}
	return chunks, nil
}

// Count returns the number of stored entries for a cluster. A
// registered cluster with a zero count has not been ingested yet.
func (ix *Index) Count(ctx context.Context, clusterID string) (int, error) {
	return ix.Store.Count(ctx, clusterID)
}
