package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opencampus/sage/pkg/registry"
	"github.com/opencampus/sage/pkg/registry/consts"
	"gorm.io/gorm"
)

// Store implements registry.Store using GORM, shared by all relational
// dialects.
type Store struct {
	db *gorm.DB
}

// ClusterModel represents the database schema for a cluster.
type ClusterModel struct {
	ID         string `gorm:"primaryKey;column:cluster_id"`
	SourcePath string `gorm:"column:source_path"`
	CreatedAt  time.Time
}

// TableName overrides the table name.
func (ClusterModel) TableName() string {
	return consts.TableNameClusters
}

// New creates a new Store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&ClusterModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Put stores a cluster, failing on duplicate ids.
func (s *Store) Put(ctx context.Context, c registry.Cluster) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing ClusterModel
		err := tx.First(&existing, "cluster_id = ?", c.ID).Error
		if err == nil {
			return registry.ErrClusterExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		model := ClusterModel{
			ID:         c.ID,
			SourcePath: c.SourcePath,
			CreatedAt:  c.CreatedAt,
		}
		return tx.Create(&model).Error
	})
}

// Get returns the cluster for id.
func (s *Store) Get(ctx context.Context, id string) (registry.Cluster, error) {
	var model ClusterModel
	err := s.db.WithContext(ctx).First(&model, "cluster_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return registry.Cluster{}, registry.ErrClusterNotFound
	}
	if err != nil {
		return registry.Cluster{}, err
	}
	return toCluster(model), nil
}

// List returns all stored clusters ordered by creation time.
func (s *Store) List(ctx context.Context) ([]registry.Cluster, error) {
	var models []ClusterModel
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}

	clusters := make([]registry.Cluster, len(models))
	for i, m := range models {
		clusters[i] = toCluster(m)
	}
	return clusters, nil
}

func toCluster(m ClusterModel) registry.Cluster {
	return registry.Cluster{
		ID:         m.ID,
		SourcePath: m.SourcePath,
		CreatedAt:  m.CreatedAt,
	}
}
