package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/opencampus/sage/pkg/registry"
	"github.com/opencampus/sage/pkg/registry/consts"
)

// Neo4jStore implements registry.Store using Neo4j. Each cluster is a
// node labeled Cluster keyed by its id.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	dbName string
}

// New creates a new Neo4jStore.
func New(uri, username, password, dbName string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	return &Neo4jStore{
		driver: driver,
		dbName: dbName,
	}, nil
}

// Put stores a cluster, failing on duplicate ids.
func (s *Neo4jStore) Put(ctx context.Context, c registry.Cluster) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		queryExisting := fmt.Sprintf(`
		MATCH (c:%s {%s: $id})
		RETURN c
		`, consts.LabelCluster, consts.ColClusterID)
		result, err := tx.Run(ctx, queryExisting, map[string]any{"id": c.ID})
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			return nil, registry.ErrClusterExists
		}

		queryCreate := fmt.Sprintf(`
		CREATE (c:%s {
			%s: $id,
			%s: $sourcePath,
			%s: $createdAt
		})
		RETURN c
		`, consts.LabelCluster,
			consts.ColClusterID, consts.ColSourcePath, consts.ColCreatedAt)

		params := map[string]any{
			"id":         c.ID,
			"sourcePath": c.SourcePath,
			"createdAt":  c.CreatedAt.Format(time.RFC3339Nano),
		}
		_, err = tx.Run(ctx, queryCreate, params)
		return nil, err
	})

	return err
}

// Get returns the cluster for id.
func (s *Neo4jStore) Get(ctx context.Context, id string) (registry.Cluster, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MATCH (c:%s {%s: $id})
		RETURN c.%s, c.%s, c.%s
		`, consts.LabelCluster, consts.ColClusterID,
			consts.ColClusterID, consts.ColSourcePath, consts.ColCreatedAt)

		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return nil, registry.ErrClusterNotFound
		}
		return recordToCluster(result.Record())
	})
	if err != nil {
		return registry.Cluster{}, err
	}

	return result.(registry.Cluster), nil
}

// List returns all stored clusters ordered by creation time.
func (s *Neo4jStore) List(ctx context.Context) ([]registry.Cluster, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MATCH (c:%s)
		RETURN c.%s, c.%s, c.%s
		ORDER BY c.%s ASC
		`, consts.LabelCluster,
			consts.ColClusterID, consts.ColSourcePath, consts.ColCreatedAt,
			consts.ColCreatedAt)

		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}

		var clusters []registry.Cluster
		for result.Next(ctx) {
			c, err := recordToCluster(result.Record())
			if err != nil {
				return nil, err
			}
			clusters = append(clusters, c)
		}
		return clusters, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]registry.Cluster), nil
}

// Close releases the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func recordToCluster(record *neo4j.Record) (registry.Cluster, error) {
	id, _ := record.Get("c." + consts.ColClusterID)
	sourcePath, _ := record.Get("c." + consts.ColSourcePath)
	createdAtStr, _ := record.Get("c." + consts.ColCreatedAt)

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr.(string))
	if err != nil {
		return registry.Cluster{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return registry.Cluster{
		ID:         id.(string),
		SourcePath: sourcePath.(string),
		CreatedAt:  createdAt,
	}, nil
}
