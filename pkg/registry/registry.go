// Package registry tracks ingested document clusters. A cluster maps a
// generated id to the source document it was built from; it is created
// once and never mutated.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrClusterNotFound is returned when a cluster id is not registered.
	ErrClusterNotFound = errors.New("cluster not found")
	// ErrClusterExists is returned on a cluster id collision. Ids are
	// random UUIDs, so a collision indicates a bug or corrupted store and
	// is never resolved by overwriting.
	ErrClusterExists = errors.New("cluster already exists")
	// ErrInvalidSourcePath is returned when the source document does not
	// exist at creation time.
	ErrInvalidSourcePath = errors.New("invalid source path")
)

// Cluster is one registered document corpus.
type Cluster struct {
	ID         string    `json:"cluster_id"`
	SourcePath string    `json:"source_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the durable mapping from cluster id to cluster metadata.
// Put must fail with ErrClusterExists on a duplicate id; Get and any
// other id-keyed operation must fail with ErrClusterNotFound for
// unknown ids.
type Store interface {
	Get(ctx context.Context, id string) (Cluster, error)
	Put(ctx context.Context, c Cluster) error
	List(ctx context.Context) ([]Cluster, error)
}

// Registry enforces the cluster lifecycle rules on top of a Store.
type Registry struct {
	store Store
	now   func() time.Time
}

// New creates a Registry backed by the given store.
func New(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// Create registers a new cluster over the document at sourcePath. The
// path must exist on disk. The returned cluster carries a fresh random
// id and creation timestamp.
func (r *Registry) Create(ctx context.Context, sourcePath string) (Cluster, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return Cluster{}, fmt.Errorf("%w: %s", ErrInvalidSourcePath, sourcePath)
	}

	c := Cluster{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		CreatedAt:  r.now().UTC(),
	}

	if err := r.store.Put(ctx, c); err != nil {
		return Cluster{}, fmt.Errorf("failed to register cluster: %w", err)
	}
	return c, nil
}

// Get returns the cluster for id, or ErrClusterNotFound.
func (r *Registry) Get(ctx context.Context, id string) (Cluster, error) {
	return r.store.Get(ctx, id)
}

// List returns all registered clusters.
func (r *Registry) List(ctx context.Context) ([]Cluster, error) {
	return r.store.List(ctx)
}
