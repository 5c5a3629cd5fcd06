// Package rag orchestrates document ingestion and grounded retrieval:
// registered documents are chunked and embedded into a vector index,
// and prompts are answered from the most relevant chunks of one
// cluster.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/opencampus/sage/pkg/chunk"
	"github.com/opencampus/sage/pkg/extract"
	"github.com/opencampus/sage/pkg/generation"
	"github.com/opencampus/sage/pkg/index"
	"github.com/opencampus/sage/pkg/registry"
)

// DefaultTopK is the number of chunks retrieved to ground a prompt.
const DefaultTopK = 3

// contextSeparator joins retrieved chunks into one context block.
const contextSeparator = "\n---\n"

// Answer is the result of a grounded generation call. RelevantChunks
// lists the exact context that grounded the response so callers can
// audit it.
type Answer struct {
	Prompt         string   `json:"prompt"`
	Response       string   `json:"response"`
	RelevantChunks []string `json:"relevant_chunks"`
}

// Pipeline wires the registry, extractor, splitter, index and
// generator together.
type Pipeline struct {
	registry  *registry.Registry
	extractor *extract.Registry
	splitter  *chunk.Splitter
	index     *index.Index
	generator generation.Generator
	topK      int

	mu        sync.Mutex
	ingesting map[string]*sync.Mutex
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// New creates a new Pipeline.
func New(reg *registry.Registry, ix *index.Index, gen generation.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry:  reg,
		extractor: extract.Default(),
		splitter:  chunk.Default(),
		index:     ix,
		generator: gen,
		topK:      DefaultTopK,
		ingesting: make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtractor replaces the default document extractor registry.
func WithExtractor(e *extract.Registry) Option {
	return func(p *Pipeline) {
		p.extractor = e
	}
}

// WithSplitter replaces the default chunk splitter.
func WithSplitter(s *chunk.Splitter) Option {
	return func(p *Pipeline) {
		p.splitter = s
	}
}

// WithTopK sets how many chunks ground each answer.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		p.topK = k
	}
}

// Ingest extracts, chunks and embeds the cluster's source document,
// replacing any vectors from a previous ingestion. It returns the
// number of vectors written; zero means the document had no extractable
// text, which the caller may treat as a failure. Ingestions of the same
// cluster are serialized; distinct clusters ingest concurrently.
func (p *Pipeline) Ingest(ctx context.Context, clusterID string) (int, error) {
	c, err := p.registry.Get(ctx, clusterID)
	if err != nil {
		return 0, err
	}

	unlock := p.lockCluster(clusterID)
	defer unlock()

	text, err := p.extractor.Text(c.SourcePath)
	if err != nil {
		return 0, err
	}

	chunks := p.splitter.Split(text)
	n, err := p.index.Replace(ctx, clusterID, chunks)
	if err != nil {
		return 0, fmt.Errorf("ingestion failed for cluster %s: %w", clusterID, err)
	}

	slog.Info("cluster ingested", "cluster_id", clusterID, "source", c.SourcePath, "vectors", n)
	return n, nil
}

// Answer retrieves the cluster's most relevant chunks for the prompt
// and asks the generator for a response grounded in them. An unknown
// cluster fails with registry.ErrClusterNotFound before any embedding
// or generation call. A cluster with no vectors degrades to ungrounded
// generation with an empty context block.
func (p *Pipeline) Answer(ctx context.Context, clusterID, prompt string) (*Answer, error) {
	if _, err := p.registry.Get(ctx, clusterID); err != nil {
		return nil, err
	}

	chunks, err := p.index.Query(ctx, clusterID, prompt, p.topK)
	if err != nil {
		return nil, err
	}

	enriched := fmt.Sprintf("%s\n\nContext:\n%s", prompt, strings.Join(chunks, contextSeparator))
	response, err := p.generator.Generate(ctx, enriched)
	if err != nil {
		return nil, fmt.Errorf("generation failed for cluster %s: %w", clusterID, err)
	}

	if chunks == nil {
		chunks = []string{}
	}
	return &Answer{
		Prompt:         prompt,
		Response:       response,
		RelevantChunks: chunks,
	}, nil
}

// VectorCount reports how many vectors the cluster has. A registered
// cluster with a zero count was created but never (successfully)
// ingested, e.g. after a crash between the two steps.
func (p *Pipeline) VectorCount(ctx context.Context, clusterID string) (int, error) {
	if _, err := p.registry.Get(ctx, clusterID); err != nil {
		return 0, err
	}
	return p.index.Count(ctx, clusterID)
}

// lockCluster acquires the per-cluster ingestion mutex. Locks are kept
// for the process lifetime; the map grows with the number of distinct
// clusters ingested, not with call volume.
func (p *Pipeline) lockCluster(clusterID string) func() {
	p.mu.Lock()
	m, ok := p.ingesting[clusterID]
	if !ok {
		m = &sync.Mutex{}
		p.ingesting[clusterID] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
