package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/opencampus/sage/pkg/index"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadEntryID   = "entry_id"
	payloadClusterID = "cluster_id"
	payloadContent   = "content"
)

// QdrantStore implements index.Store using Qdrant. The collection is
// created with cosine distance; every search carries an exact
// cluster_id payload filter.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

// New creates a new QdrantStore and ensures the collection exists.
func New(host string, port int, collectionName string, vectorSize uint64) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	store := &QdrantStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
	}

	if err := store.initCollection(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *QdrantStore) initCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}
	return nil
}

// pointID maps a deterministic entry id onto a UUID, since Qdrant only
// accepts UUID or integer point ids. Same entry id, same point id, so
// re-ingestion overwrites in place.
func pointID(entryID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(entryID)).String()
}

func clusterFilter(clusterID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadClusterID, clusterID),
		},
	}
}

// Upsert inserts or overwrites entries by id.
func (s *QdrantStore) Upsert(ctx context.Context, entries []index.Entry) error {
	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		if uint64(len(e.Embedding)) != s.vectorSize {
			return fmt.Errorf("entry %s has dimension %d, collection uses %d", e.ID, len(e.Embedding), s.vectorSize)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(e.ID)),
			Vectors: qdrant.NewVectors(e.Embedding...),
			Payload: map[string]*qdrant.Value{
				payloadEntryID:   qdrant.NewValueString(e.ID),
				payloadClusterID: qdrant.NewValueString(e.ClusterID),
				payloadContent:   qdrant.NewValueString(e.Content),
			},
		}
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
		Wait:           &wait,
	})
	return err
}

// Search returns the limit most similar entries within one cluster.
func (s *QdrantStore) Search(ctx context.Context, clusterID string, vector []float32, limit int) ([]index.SearchResult, error) {
	limit64 := uint64(limit)
	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         clusterFilter(clusterID),
		Limit:          &limit64,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	results := make([]index.SearchResult, len(res))
	for i, hit := range res {
		results[i] = index.SearchResult{
			Entry: index.Entry{
				ID:        hit.Payload[payloadEntryID].GetStringValue(),
				ClusterID: hit.Payload[payloadClusterID].GetStringValue(),
				Content:   hit.Payload[payloadContent].GetStringValue(),
			},
			Score: hit.Score,
		}
	}

	return results, nil
}

// DeleteCluster removes every point carrying the cluster's payload.
func (s *QdrantStore) DeleteCluster(ctx context.Context, clusterID string) error {
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Points:         qdrant.NewPointsSelectorFilter(clusterFilter(clusterID)),
		Wait:           &wait,
	})
	return err
}

// Count returns the exact number of points in one cluster.
func (s *QdrantStore) Count(ctx context.Context, clusterID string) (int, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collectionName,
		Filter:         clusterFilter(clusterID),
		Exact:          &exact,
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
