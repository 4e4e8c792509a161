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

// MongoStagingRepo is the durable staging store. Records are append-only
// except for status, errors and inserted_at.
type MongoStagingRepo struct {
	collection *mongo.Collection
}

// NewMongoStagingRepo creates the repository and its indexes. The
// (source, shape, created_at) index serves ordered consumption per shape;
// the status index serves the processor sweep.
func NewMongoStagingRepo(store *config.MongoStore) *MongoStagingRepo {
	collection := store.Database.Collection("staged_records")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "data_source_id", Value: 1},
			{Key: "shape_hash", Value: 1},
			{Key: "created_at", Value: 1},
		}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "import_id", Value: 1}}},
	})

	return &MongoStagingRepo{collection: collection}
}

// Stage appends one raw payload.
func (r *MongoStagingRepo) Stage(ctx context.Context, record *domain.StagedRecord) error {
	record.CreatedAt = time.Now()
	if record.Status == "" {
		record.Status = domain.RecordStaged
	}
	_, err := r.collection.InsertOne(ctx, record)
	return errors.Wrap(err, "staging record")
}

// Get fetches one staged record by id.
func (r *MongoStagingRepo) Get(ctx context.Context, id string) (*domain.StagedRecord, error) {
	var record domain.StagedRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching staged record")
	}
	return &record, nil
}

// ListUnprocessed returns records still awaiting transformation, oldest
// first so arrival order is preserved per shape.
func (r *MongoStagingRepo) ListUnprocessed(ctx context.Context, sourceID, shapeHash string, limit int64) ([]domain.StagedRecord, error) {
	filter := bson.M{"status": domain.RecordStaged}
	if sourceID != "" {
		filter["data_source_id"] = sourceID
	}
	if shapeHash != "" {
		filter["shape_hash"] = shapeHash
	}

	return r.find(ctx, filter, limit)
}

// ListByStatus returns a source's records in one state, oldest first.
func (r *MongoStagingRepo) ListByStatus(ctx context.Context, sourceID string, status domain.RecordStatus, limit int64) ([]domain.StagedRecord, error) {
	filter := bson.M{"status": status}
	if sourceID != "" {
		filter["data_source_id"] = sourceID
	}
	return r.find(ctx, filter, limit)
}

func (r *MongoStagingRepo) find(ctx context.Context, filter bson.M, limit int64) ([]domain.StagedRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "listing staged records")
	}
	defer cursor.Close(ctx)

	var records []domain.StagedRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrap(err, "decoding staged records")
	}
	return records, nil
}

// SetStatus moves a record through its state machine.
func (r *MongoStagingRepo) SetStatus(ctx context.Context, id string, status domain.RecordStatus) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return errors.Wrap(err, "updating staged record status")
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordErrors appends intent failures to the record's error list.
func (r *MongoStagingRepo) RecordErrors(ctx context.Context, id string, errs []domain.RecordError) error {
	if len(errs) == 0 {
		return nil
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"errors": bson.M{"$each": errs}},
	})
	return errors.Wrap(err, "recording staged record errors")
}

// ClearErrors removes errors for the given transformations ahead of a
// reprocess that re-runs exactly those; an empty list clears everything.
func (r *MongoStagingRepo) ClearErrors(ctx context.Context, id string, transformationIDs []string) error {
	update := bson.M{"$set": bson.M{"errors": []domain.RecordError{}}}
	if len(transformationIDs) > 0 {
		update = bson.M{
			"$pull": bson.M{"errors": bson.M{"transformation_id": bson.M{"$in": transformationIDs}}},
		}
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return errors.Wrap(err, "clearing staged record errors")
}

// MarkInserted stamps inserted_at and the terminal status.
func (r *MongoStagingRepo) MarkInserted(ctx context.Context, id string, status domain.RecordStatus, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "inserted_at": at},
	})
	if err != nil {
		return errors.Wrap(err, "marking staged record inserted")
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteOlderThan enforces a source's retention window.
func (r *MongoStagingRepo) DeleteOlderThan(ctx context.Context, sourceID string, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"data_source_id": sourceID,
		"created_at":     bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired staged records")
	}
	return result.DeletedCount, nil
}

// DeleteBySource cascades a hard source delete into its staged data.
func (r *MongoStagingRepo) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"data_source_id": sourceID})
	if err != nil {
		return 0, errors.Wrap(err, "deleting staged records for source")
	}
	return result.DeletedCount, nil
}
