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

// MongoMappingRepo stores type mappings in the type_mappings collection,
// keyed uniquely by (data_source_id, shape_hash).
type MongoMappingRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoMappingRepo creates the repository and its indexes.
func NewMongoMappingRepo(store *config.MongoStore) *MongoMappingRepo {
	collection := store.Database.Collection("type_mappings")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "data_source_id", Value: 1},
				{Key: "shape_hash", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "active", Value: 1}}},
	})

	return &MongoMappingRepo{client: store.Client, collection: collection}
}

// Create inserts a new mapping.
func (r *MongoMappingRepo) Create(ctx context.Context, mapping *domain.TypeMapping) error {
	mapping.CreatedAt = time.Now()
	mapping.UpdatedAt = mapping.CreatedAt
	if mapping.Transformations == nil {
		mapping.Transformations = []domain.Transformation{}
	}
	_, err := r.collection.InsertOne(ctx, mapping)
	return errors.Wrap(err, "inserting type mapping")
}

// Get fetches one mapping by id.
func (r *MongoMappingRepo) Get(ctx context.Context, id string) (*domain.TypeMapping, error) {
	var mapping domain.TypeMapping
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&mapping)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching type mapping")
	}
	return &mapping, nil
}

// GetByShape looks a mapping up by its registry key.
func (r *MongoMappingRepo) GetByShape(ctx context.Context, sourceID, shapeHash string) (*domain.TypeMapping, error) {
	var mapping domain.TypeMapping
	err := r.collection.FindOne(ctx, bson.M{
		"data_source_id": sourceID,
		"shape_hash":     shapeHash,
	}).Decode(&mapping)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetching type mapping by shape")
	}
	return &mapping, nil
}

// ListBySource returns all of a source's mappings.
func (r *MongoMappingRepo) ListBySource(ctx context.Context, sourceID string) ([]domain.TypeMapping, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"data_source_id": sourceID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "listing type mappings")
	}
	defer cursor.Close(ctx)

	var mappings []domain.TypeMapping
	if err := cursor.All(ctx, &mappings); err != nil {
		return nil, errors.Wrap(err, "decoding type mappings")
	}
	return mappings, nil
}

// Update replaces a mapping document.
func (r *MongoMappingRepo) Update(ctx context.Context, mapping *domain.TypeMapping) error {
	mapping.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": mapping.ID}, mapping)
	if err != nil {
		return errors.Wrap(err, "updating type mapping")
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetActive toggles whether the mapping's transformations run.
func (r *MongoMappingRepo) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"active": active, "updated_at": time.Now()},
	})
	if err != nil {
		return errors.Wrap(err, "updating type mapping active flag")
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceAll writes every given mapping inside one session transaction so
// an ontology upgrade is all-or-nothing.
func (r *MongoMappingRepo) ReplaceAll(ctx context.Context, mappings []*domain.TypeMapping) error {
	session, err := r.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "starting mongo session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now()
		for _, mapping := range mappings {
			mapping.UpdatedAt = now
			result, err := r.collection.ReplaceOne(sc, bson.M{"_id": mapping.ID}, mapping)
			if err != nil {
				return nil, err
			}
			if result.MatchedCount == 0 {
				return nil, errors.Errorf("type mapping %s disappeared during upgrade", mapping.ID)
			}
		}
		return nil, nil
	})
	return errors.Wrap(err, "replacing type mappings")
}
