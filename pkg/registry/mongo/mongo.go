package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/opencampus/sage/pkg/registry"
	"github.com/opencampus/sage/pkg/registry/consts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements registry.Store using MongoDB.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ClusterDoc is the stored document shape.
type ClusterDoc struct {
	ClusterID  string    `bson:"cluster_id"`
	SourcePath string    `bson:"source_path"`
	CreatedAt  time.Time `bson:"created_at"`
}

// New creates a new MongoStore.
func New(client *mongo.Client, dbName, collectionName string) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
	}
}

// Put stores a cluster, failing on duplicate ids.
func (s *MongoStore) Put(ctx context.Context, c registry.Cluster) error {
	filter := bson.M{consts.ColClusterID: c.ID}
	err := s.collection.FindOne(ctx, filter).Err()
	if err == nil {
		return registry.ErrClusterExists
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	doc := ClusterDoc{
		ClusterID:  c.ID,
		SourcePath: c.SourcePath,
		CreatedAt:  c.CreatedAt,
	}
	_, err = s.collection.InsertOne(ctx, doc)
	return err
}

// Get returns the cluster for id.
func (s *MongoStore) Get(ctx context.Context, id string) (registry.Cluster, error) {
	filter := bson.M{consts.ColClusterID: id}

	var doc ClusterDoc
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return registry.Cluster{}, registry.ErrClusterNotFound
	}
	if err != nil {
		return registry.Cluster{}, err
	}
	return toCluster(doc), nil
}

// List returns all stored clusters ordered by creation time.
func (s *MongoStore) List(ctx context.Context) ([]registry.Cluster, error) {
	opts := options.Find().SetSort(bson.M{consts.ColCreatedAt: 1})

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var clusters []registry.Cluster
	for cursor.Next(ctx) {
		var doc ClusterDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		clusters = append(clusters, toCluster(doc))
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return clusters, nil
}

func toCluster(doc ClusterDoc) registry.Cluster {
	return registry.Cluster{
		ID:         doc.ClusterID,
		SourcePath: doc.SourcePath,
		CreatedAt:  doc.CreatedAt,
	}
}
