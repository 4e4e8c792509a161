package config

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pkg/errors"
)

// GraphStore is the connection handle for graph entity storage.
type GraphStore struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// NewGraphStore creates and verifies a Neo4j driver.
func NewGraphStore(ctx context.Context, cfg *Config) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating neo4j driver")
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, errors.Wrap(err, "connecting to neo4j")
	}

	return &GraphStore{
		Driver:   driver,
		Database: cfg.Neo4jDatabase,
	}, nil
}

// Close closes the driver.
func (g *GraphStore) Close(ctx context.Context) error {
	return g.Driver.Close(ctx)
}
