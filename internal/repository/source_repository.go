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

// MongoSourceRepo stores data sources in the data_sources collection.
type MongoSourceRepo struct {
	collection *mongo.Collection
}

// NewMongoSourceRepo creates the repository and its indexes.
func NewMongoSourceRepo(store *config.MongoStore) *MongoSourceRepo {
	collection := store.Database.Collection("data_sources")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "archived", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	})

	return &MongoSourceRepo{collection: collection}
}

// Create inserts a new data source.
func (r *MongoSourceRepo) Create(ctx context.Context, source *domain.DataSource) error {
	source.CreatedAt = time.Now()
	source.UpdatedAt = source.CreatedAt
	_, err := r.collection.InsertOne(ctx, source)
	return errors.Wrap(err, "inserting data source")
}

// Get fetches one data source by id.
func (r *MongoSourceRepo) Get(ctx context.Context, id string) (*domain.DataSource, error) {
	var source domain.DataSource
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&source)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching data source")
	}
	return &source, nil
}

// List returns all sources, optionally including archived ones.
func (r *MongoSourceRepo) List(ctx context.Context, includeArchived bool) ([]domain.DataSource, error) {
	filter := bson.M{}
	if !includeArchived {
		filter["archived"] = false
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "listing data sources")
	}
	defer cursor.Close(ctx)

	var sources []domain.DataSource
	if err := cursor.All(ctx, &sources); err != nil {
		return nil, errors.Wrap(err, "decoding data sources")
	}
	return sources, nil
}

// Update replaces a source definition.
func (r *MongoSourceRepo) Update(ctx context.Context, source *domain.DataSource) error {
	source.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": source.ID}, source)
	if err != nil {
		return errors.Wrap(err, "updating data source")
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetActive toggles a source without touching its configuration.
func (r *MongoSourceRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.setFields(ctx, id, bson.M{"active": active})
}

// Archive soft-deletes a source; it also deactivates it.
func (r *MongoSourceRepo) Archive(ctx context.Context, id string) error {
	return r.setFields(ctx, id, bson.M{"archived": true, "active": false})
}

// Delete hard-deletes a source definition.
func (r *MongoSourceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting data source")
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoSourceRepo) setFields(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return errors.Wrap(err, "updating data source")
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
