package repository

import (
	"context"
	"time"

	"dataloom/internal/config"
	"dataloom/internal/domain"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoImportRepo stores acquisition batches in the imports collection.
type MongoImportRepo struct {
	collection *mongo.Collection
}

// NewMongoImportRepo creates the repository and its indexes.
func NewMongoImportRepo(store *config.MongoStore) *MongoImportRepo {
	collection := store.Database.Collection("imports")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "data_source_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})

	return &MongoImportRepo{collection: collection}
}

// Create inserts a new import in ready state.
func (r *MongoImportRepo) Create(ctx context.Context, imp *domain.Import) error {
	imp.CreatedAt = time.Now()
	if imp.Status == "" {
		imp.Status = domain.ImportReady
	}
	_, err := r.collection.InsertOne(ctx, imp)
	return errors.Wrap(err, "inserting import")
}

// Get fetches one import by id.
func (r *MongoImportRepo) Get(ctx context.Context, id string) (*domain.Import, error) {
	var imp domain.Import
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&imp)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching import")
	}
	return &imp, nil
}

// ListBySource returns a source's imports, newest first.
func (r *MongoImportRepo) ListBySource(ctx context.Context, sourceID string, limit int64) ([]domain.Import, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"data_source_id": sourceID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "listing imports")
	}
	defer cursor.Close(ctx)

	var imports []domain.Import
	if err := cursor.All(ctx, &imports); err != nil {
		return nil, errors.Wrap(err, "decoding imports")
	}
	return imports, nil
}

// SetStatus transitions an import, stamping completed_at on terminal
// states.
func (r *MongoImportRepo) SetStatus(ctx context.Context, id string, status domain.ImportStatus, message string) error {
	set := bson.M{"status": status, "status_message": message}
	if status.Terminal() {
		set["completed_at"] = time.Now()
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "updating import status")
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddCounts increments the aggregate record counters.
func (r *MongoImportRepo) AddCounts(ctx context.Context, id string, total, inserted, errored int64) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{
			"total_records": total,
			"inserted":      inserted,
			"errored":       errored,
		},
	})
	return errors.Wrap(err, "updating import counts")
}
