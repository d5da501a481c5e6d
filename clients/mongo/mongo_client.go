package mongo_client

import (
	"context"
	"fmt"

	"portfoliobackend/types"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// HoldingsStore reads the holdings table from a MongoDB collection. It never
// writes.
type HoldingsStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func Connect(ctx context.Context, uri, database, collection string) (*HoldingsStore, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Send a ping to confirm a successful connection
	if err := client.Database("admin").RunCommand(ctx, bson.M{"ping": 1}).Err(); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	zap.L().Info("Connected to MongoDB", zap.String("database", database), zap.String("collection", collection))
	return &HoldingsStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// LoadHoldings returns every holding document in insertion order
func (s *HoldingsStore) LoadHoldings(ctx context.Context) ([]types.Holding, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer cursor.Close(ctx)

	var holdings []types.Holding
	if err := cursor.All(ctx, &holdings); err != nil {
		return nil, fmt.Errorf("failed to decode holdings: %w", err)
	}
	return holdings, nil
}

func (s *HoldingsStore) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
