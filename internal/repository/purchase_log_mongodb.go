package repository

import (
	"context"
	"fmt"
	"time"

	"phonemarket-bot/internal/model"
	"phonemarket-bot/pkg/uid"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBPurchaseLog implements PurchaseLogRepository for MongoDB.
type MongoDBPurchaseLog struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBPurchaseLog connects to MongoDB and prepares the purchase collection.
func NewMongoDBPurchaseLog(uri, dbName, collectionName string) (*MongoDBPurchaseLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(dbName).Collection(collectionName)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "purchased_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "purchased_at", Value: -1}}},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warn().Str("component", "repository").Err(err).Msg("failed to create purchase log indexes")
	}

	log.Info().Str("component", "repository").Str("database", dbName).Str("collection", collectionName).
		Msg("MongoDB purchase log connected")
	return &MongoDBPurchaseLog{
		client:     client,
		collection: collection,
	}, nil
}

// InsertPurchase appends a record, assigning an id and timestamp if missing.
func (r *MongoDBPurchaseLog) InsertPurchase(ctx context.Context, record *model.PurchaseRecord) error {
	if record.ID == "" {
		record.ID = uid.NewOrdered()
	}
	if record.PurchasedAt.IsZero() {
		record.PurchasedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, record)
	return err
}

// ListPurchases returns records newest first with pagination.
func (r *MongoDBPurchaseLog) ListPurchases(ctx context.Context, limit, offset int) ([]model.PurchaseRecord, int64, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "purchased_at", Value: -1}})
	findOptions.SetLimit(int64(limit))
	findOptions.SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var records []model.PurchaseRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, err
	}

	// Ensure not nil slice for JSON
	if records == nil {
		records = []model.PurchaseRecord{}
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	return records, count, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBPurchaseLog) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ PurchaseLogRepository = (*MongoDBPurchaseLog)(nil)
