package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore is the connection handle for the metadata and staging
// database. Constructed once in main and passed to the repositories.
type MongoStore struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoStore connects and pings the configured MongoDB.
func NewMongoStore(cfg *Config) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	return &MongoStore{
		Client:   client,
		Database: client.Database(cfg.MongoDB),
	}, nil
}

// Close disconnects the client.
func (m *MongoStore) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
