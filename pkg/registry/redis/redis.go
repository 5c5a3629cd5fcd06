package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opencampus/sage/pkg/registry"
	"github.com/opencampus/sage/pkg/registry/consts"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements registry.Store using Redis.
// Clusters are stored as JSON values in a single hash keyed by id.
type RedisStore struct {
	client *redis.Client
	key    string
}

// New creates a new RedisStore.
func New(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: consts.KeyClusters}
}

// Put stores a cluster. HSETNX makes the duplicate check atomic.
func (s *RedisStore) Put(ctx context.Context, c registry.Cluster) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster: %w", err)
	}

	set, err := s.client.HSetNX(ctx, s.key, c.ID, b).Result()
	if err != nil {
		return err
	}
	if !set {
		return registry.ErrClusterExists
	}
	return nil
}

// Get returns the cluster for id.
func (s *RedisStore) Get(ctx context.Context, id string) (registry.Cluster, error) {
	val, err := s.client.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return registry.Cluster{}, registry.ErrClusterNotFound
	}
	if err != nil {
		return registry.Cluster{}, err
	}

	var c registry.Cluster
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return registry.Cluster{}, fmt.Errorf("failed to unmarshal cluster %s: %w", id, err)
	}
	return c, nil
}

// List returns all stored clusters.
func (s *RedisStore) List(ctx context.Context) ([]registry.Cluster, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	clusters := make([]registry.Cluster, 0, len(all))
	for id, val := range all {
		var c registry.Cluster
		if err := json.Unmarshal([]byte(val), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cluster %s: %w", id, err)
		}
		clusters = append(clusters, c)
	}
	return clusters, nil
}
