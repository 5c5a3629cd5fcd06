// Package jsonfile implements registry.Store as a flat JSON map on
// disk. The whole map is rewritten after every mutation; writes go to a
// temp file first and are renamed into place so a crash mid-write never
// corrupts previously committed entries.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/opencampus/sage/pkg/registry"
)

// JSONFile implements registry.Store backed by a single JSON file.
type JSONFile struct {
	mu       sync.Mutex
	path     string
	clusters map[string]registry.Cluster
}

// New loads the store from path, or starts empty if the file does not
// exist yet.
func New(path string) (*JSONFile, error) {
	s := &JSONFile{
		path:     path,
		clusters: make(map[string]registry.Cluster),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	if err := json.Unmarshal(data, &s.clusters); err != nil {
		return nil, fmt.Errorf("registry file %s is corrupt: %w", path, err)
	}
	return s, nil
}

// Put stores a cluster and persists the whole map.
func (s *JSONFile) Put(ctx context.Context, c registry.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clusters[c.ID]; ok {
		return registry.ErrClusterExists
	}
	s.clusters[c.ID] = c

	if err := s.save(); err != nil {
		delete(s.clusters, c.ID)
		return err
	}
	return nil
}

// Get returns the cluster for id.
func (s *JSONFile) Get(ctx context.Context, id string) (registry.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clusters[id]
	if !ok {
		return registry.Cluster{}, registry.ErrClusterNotFound
	}
	return c, nil
}

// List returns all stored clusters.
func (s *JSONFile) List(ctx context.Context) ([]registry.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]registry.Cluster, 0, len(s.clusters))
	for _, c := range s.clusters {
		out = append(out, c)
	}
	return out, nil
}

// save must be called with the mutex held.
func (s *JSONFile) save() error {
	data, err := json.MarshalIndent(s.clusters, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".clusters-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp registry file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close registry file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace registry file: %w", err)
	}
	return nil
}
