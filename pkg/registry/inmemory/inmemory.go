package inmemory

import (
	"context"
	"sync"

	"github.com/opencampus/sage/pkg/registry"
)

// InMemory implements registry.Store using a map.
type InMemory struct {
	mu       sync.RWMutex
	clusters map[string]registry.Cluster
}

// New creates a new InMemory store.
func New() *InMemory {
	return &InMemory{clusters: make(map[string]registry.Cluster)}
}

// Put stores a cluster, failing on duplicate ids.
func (s *InMemory) Put(ctx context.Context, c registry.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clusters[c.ID]; ok {
		return registry.ErrClusterExists
	}
	s.clusters[c.ID] = c
	return nil
}

// Get returns the cluster for id.
func (s *InMemory) Get(ctx context.Context, id string) (registry.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clusters[id]
	if !ok {
		return registry.Cluster{}, registry.ErrClusterNotFound
	}
	return c, nil
}

// List returns all stored clusters.
func (s *InMemory) List(ctx context.Context) ([]registry.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]registry.Cluster, 0, len(s.clusters))
	for _, c := range s.clusters {
		out = append(out, c)
	}
	return out, nil
}
