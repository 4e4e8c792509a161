// Package repository persists pipeline state: sources, imports and staged
// records in MongoDB, graph entities in Neo4j, time-series rows in
// InfluxDB. Services depend on the interfaces here; tests substitute
// in-memory fakes.
package repository

import (
	"context"
	"time"

	"dataloom/internal/domain"
)

// SourceRepository stores data source definitions.
type SourceRepository interface {
	Create(ctx context.Context, source *domain.DataSource) error
	Get(ctx context.Context, id string) (*domain.DataSource, error)
	List(ctx context.Context, includeArchived bool) ([]domain.DataSource, error)
	Update(ctx context.Context, source *domain.DataSource) error
	SetActive(ctx context.Context, id string, active bool) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ImportRepository stores acquisition batches.
type ImportRepository interface {
	Create(ctx context.Context, imp *domain.Import) error
	Get(ctx context.Context, id string) (*domain.Import, error)
	ListBySource(ctx context.Context, sourceID string, limit int64) ([]domain.Import, error)
	SetStatus(ctx context.Context, id string, status domain.ImportStatus, message string) error
	AddCounts(ctx context.Context, id string, total, inserted, errored int64) error
}

// StagingRepository is the durable append-only record of inbound payloads.
type StagingRepository interface {
	Stage(ctx context.Context, record *domain.StagedRecord) error
	Get(ctx context.Context, id string) (*domain.StagedRecord, error)
	// ListUnprocessed returns staged records awaiting transformation in
	// arrival order. shapeHash narrows to one shape when non-empty.
	ListUnprocessed(ctx context.Context, sourceID, shapeHash string, limit int64) ([]domain.StagedRecord, error)
	ListByStatus(ctx context.Context, sourceID string, status domain.RecordStatus, limit int64) ([]domain.StagedRecord, error)
	SetStatus(ctx context.Context, id string, status domain.RecordStatus) error
	RecordErrors(ctx context.Context, id string, errs []domain.RecordError) error
	ClearErrors(ctx context.Context, id string, transformationIDs []string) error
	MarkInserted(ctx context.Context, id string, status domain.RecordStatus, at time.Time) error
	DeleteOlderThan(ctx context.Context, sourceID string, cutoff time.Time) (int64, error)
	DeleteBySource(ctx context.Context, sourceID string) (int64, error)
}

// MappingRepository stores type mappings and their transformations.
type MappingRepository interface {
	Create(ctx context.Context, mapping *domain.TypeMapping) error
	Get(ctx context.Context, id string) (*domain.TypeMapping, error)
	GetByShape(ctx context.Context, sourceID, shapeHash string) (*domain.TypeMapping, error)
	ListBySource(ctx context.Context, sourceID string) ([]domain.TypeMapping, error)
	Update(ctx context.Context, mapping *domain.TypeMapping) error
	SetActive(ctx context.Context, id string, active bool) error
	// ReplaceAll writes the given mappings in one transaction; either all
	// replacements land or none do. Used by ontology upgrades.
	ReplaceAll(ctx context.Context, mappings []*domain.TypeMapping) error
}

// GraphWriter bulk-persists node and edge intents with per-intent results.
type GraphWriter interface {
	WriteBulk(ctx context.Context, intents []domain.Intent) []domain.IntentResult
}

// TimeseriesWriter bulk-appends row intents with per-row results.
type TimeseriesWriter interface {
	WriteRows(ctx context.Context, measurement string, snapshot domain.AdapterConfig, intents []domain.Intent) []domain.IntentResult
}
