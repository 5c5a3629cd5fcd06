package index_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opencampus/sage/pkg/index"
	"github.com/opencampus/sage/pkg/index/inmemory"
)

// vocabEmbedder is a deterministic embedder for tests: each dimension
// counts occurrences of one vocabulary word.
type vocabEmbedder struct {
	vocab []string
	calls int
	err   error
}

func (e *vocabEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(e.vocab))
		for j, word := range e.vocab {
			vec[j] = float32(strings.Count(strings.ToLower(text), word))
		}
		out[i] = vec
	}
	return out, nil
}

func newTestIndex() (*index.Index, *vocabEmbedder, *inmemory.InMemory) {
	emb := &vocabEmbedder{vocab: []string{"intro", "middle", "concluding", "text"}}
	store := inmemory.New()
	return index.New(emb, store), emb, store
}

func TestAdd_WritesOneEntryPerChunk(t *testing.T) {
	ctx := context.Background()
	ix, emb, store := newTestIndex()

	n, err := ix.Add(ctx, "c1", []string{"intro text", "middle text", "concluding text"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 entries written, got %d", n)
	}
	if emb.calls != 1 {
		t.Errorf("chunks should be embedded in one batch, got %d calls", emb.calls)
	}
	if count, _ := store.Count(ctx, "c1"); count != 3 {
		t.Errorf("store count = %d, want 3", count)
	}
}

func TestAdd_DeterministicIDs(t *testing.T) {
	ctx := context.Background()
	ix, _, store := newTestIndex()

	chunks := []string{"intro text", "middle text"}
	if _, err := ix.Add(ctx, "c1", chunks); err != nil {
		t.Fatal(err)
	}
	// Adding the same chunks again overwrites, never duplicates.
	if _, err := ix.Add(ctx, "c1", chunks); err != nil {
		t.Fatal(err)
	}
	if count, _ := store.Count(ctx, "c1"); count != 2 {
		t.Errorf("re-adding identical chunks duplicated entries, count = %d", count)
	}
}

func TestAdd_EmptyChunksIsNotAnError(t *testing.T) {
	ix, emb, _ := newTestIndex()
	n, err := ix.Add(context.Background(), "c1", nil)
	if err != nil {
		t.Fatalf("Add of no chunks should succeed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
	if emb.calls != 0 {
		t.Error("no chunks should mean no embedding call")
	}
}

func TestAdd_PropagatesEmbedderFailure(t *testing.T) {
	ix, emb, store := newTestIndex()
	emb.err = errors.New("embedding backend down")

	_, err := ix.Add(context.Background(), "c1", []string{"intro text"})
	if err == nil {
		t.Fatal("embedder failure must abort the add")
	}
	if !errors.Is(err, index.ErrEmbedderUnavailable) {
		t.Errorf("embedder failure should wrap ErrEmbedderUnavailable, got %v", err)
	}
	if count, _ := store.Count(context.Background(), "c1"); count != 0 {
		t.Errorf("failed add must not leave entries behind, count = %d", count)
	}
}

func TestQuery_PropagatesEmbedderFailure(t *testing.T) {
	ix, emb, _ := newTestIndex()
	emb.err = errors.New("embedding backend down")

	_, err := ix.Query(context.Background(), "c1", "anything", 3)
	if !errors.Is(err, index.ErrEmbedderUnavailable) {
		t.Errorf("embedder failure should wrap ErrEmbedderUnavailable, got %v", err)
	}
}

// noopEmbedder returns no vectors regardless of input.
type noopEmbedder struct{}

func (noopEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func TestQuery_RejectsMissingQueryVector(t *testing.T) {
	ix := index.New(noopEmbedder{}, inmemory.New())

	_, err := ix.Query(context.Background(), "c1", "anything", 3)
	if err == nil {
		t.Error("an embedder returning no vector for the query must be an error, not an empty result")
	}
}

func TestReplace_DropsStaleChunks(t *testing.T) {
	ctx := context.Background()
	ix, _, store := newTestIndex()

	if _, err := ix.Add(ctx, "c1", []string{"intro text", "middle text", "concluding text"}); err != nil {
		t.Fatal(err)
	}
	// The document shrank: replace must not leave the old third chunk.
	n, err := ix.Replace(ctx, "c1", []string{"intro text"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 entry after replace, got %d", n)
	}
	if count, _ := store.Count(ctx, "c1"); count != 1 {
		t.Errorf("stale chunks leaked, count = %d", count)
	}
}

func TestQuery_ReturnsMostRelevantFirst(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := newTestIndex()

	if _, err := ix.Add(ctx, "c1", []string{"intro text", "middle text", "concluding text"}); err != nil {
		t.Fatal(err)
	}

	chunks, err := ix.Query(ctx, "c1", "tell me about the middle", 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "middle text" {
		t.Errorf("expected [\"middle text\"], got %v", chunks)
	}
}

func TestQuery_FewerEntriesThanTopK(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := newTestIndex()

	if _, err := ix.Add(ctx, "c1", []string{"intro text"}); err != nil {
		t.Fatal(err)
	}
	chunks, err := ix.Query(ctx, "c1", "intro", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestQuery_EmptyCluster(t *testing.T) {
	ix, _, _ := newTestIndex()
	chunks, err := ix.Query(context.Background(), "never-ingested", "anything", 3)
	if err != nil {
		t.Fatalf("empty cluster should not error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %v", chunks)
	}
}

func TestQuery_RejectsNonPositiveTopK(t *testing.T) {
	ix, emb, _ := newTestIndex()
	if _, err := ix.Query(context.Background(), "c1", "q", 0); err == nil {
		t.Error("topK of 0 should be rejected")
	}
	if emb.calls != 0 {
		t.Error("invalid topK must be rejected before embedding")
	}
}

func TestEntryID(t *testing.T) {
	if got := index.EntryID("abc", 7); got != "abc_7" {
		t.Errorf("EntryID = %q, want abc_7", got)
	}
}
