package postgres

import (
	"context"
	"fmt"

	"github.com/opencampus/sage/pkg/index"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore implements index.Store using pgvector. Ranking uses the
// cosine distance operator <=>; the reported score is 1 - distance so
// higher still means more similar, matching the other backends.
type PostgresStore struct {
	db *gorm.DB
}

// EntryModel represents the database schema for a vector entry.
type EntryModel struct {
	ID        string `gorm:"primaryKey"`
	ClusterID string `gorm:"index"`
	Content   string
	Embedding pgvector.Vector `gorm:"type:vector(1536)"` // adjust to the embedder's dimension
}

// TableName overrides the table name.
func (EntryModel) TableName() string {
	return "vector_entries"
}

// New creates a new PostgresStore.
func New(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	if err := db.AutoMigrate(&EntryModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Upsert inserts or overwrites entries by id in one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, entries []index.Entry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			model := EntryModel{
				ID:        e.ID,
				ClusterID: e.ClusterID,
				Content:   e.Content,
				Embedding: pgvector.NewVector(e.Embedding),
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"cluster_id", "content", "embedding"}),
			}).Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Search returns the limit nearest entries within one cluster.
func (s *PostgresStore) Search(ctx context.Context, clusterID string, vector []float32, limit int) ([]index.SearchResult, error) {
	type searchRow struct {
		ID        string
		ClusterID string
		Content   string
		Score     float32
	}

	var rows []searchRow
	q := pgvector.NewVector(vector)
	err := s.db.WithContext(ctx).
		Model(&EntryModel{}).
		Select("id, cluster_id, content, 1 - (embedding <=> ?) AS score", q).
		Where("cluster_id = ?", clusterID).
		Order(clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{q}}).
		Order("id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]index.SearchResult, len(rows))
	for i, r := range rows {
		results[i] = index.SearchResult{
			Entry: index.Entry{ID: r.ID, ClusterID: r.ClusterID, Content: r.Content},
			Score: r.Score,
		}
	}

	return results, nil
}

// DeleteCluster removes every entry of a cluster.
func (s *PostgresStore) DeleteCluster(ctx context.Context, clusterID string) error {
	return s.db.WithContext(ctx).
		Where("cluster_id = ?", clusterID).
		Delete(&EntryModel{}).Error
}

// Count returns the number of stored entries for a cluster.
func (s *PostgresStore) Count(ctx context.Context, clusterID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&EntryModel{}).
		Where("cluster_id = ?", clusterID).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
