package service

import (
	"context"

	"dataloom/internal/domain"
	"dataloom/internal/repository"
	"dataloom/internal/shape"
	"dataloom/pkg/logger"

	"github.com/google/uuid"
)

// Stager is the ingestion side of the pipeline: adapters hand it raw
// payloads and it persists them under an import, fingerprinted and
// snapshotted. It never waits on transformation; a slow consumer cannot
// back up an adapter's read loop.
type Stager struct {
	staging  repository.StagingRepository
	imports  repository.ImportRepository
	registry *Registry
	stats    *Stats
}

// NewStager creates the staging service.
func NewStager(staging repository.StagingRepository, imports repository.ImportRepository, registry *Registry, stats *Stats) *Stager {
	return &Stager{
		staging:  staging,
		imports:  imports,
		registry: registry,
		stats:    stats,
	}
}

// OpenImport starts a new acquisition batch for a source.
func (s *Stager) OpenImport(ctx context.Context, sourceID string) (*domain.Import, error) {
	imp := &domain.Import{
		ID:           uuid.NewString(),
		DataSourceID: sourceID,
		Status:       domain.ImportProcessing,
	}
	if err := s.imports.Create(ctx, imp); err != nil {
		return nil, err
	}
	return imp, nil
}

// Stage persists one raw payload: fingerprint, config snapshot, import
// tag. For mapped kinds it also ensures a mapping shell exists so the
// operator sees the new shape immediately.
func (s *Stager) Stage(ctx context.Context, imp *domain.Import, source *domain.DataSource, payload map[string]interface{}) error {
	hash := shape.Fingerprint(payload)

	record := &domain.StagedRecord{
		ID:             uuid.NewString(),
		ImportID:       imp.ID,
		DataSourceID:   source.ID,
		ShapeHash:      hash,
		Payload:        payload,
		ConfigSnapshot: source.Config,
		Status:         domain.RecordStaged,
	}

	if err := s.staging.Stage(ctx, record); err != nil {
		return err
	}
	s.stats.staged.Add(1)

	if source.Kind != domain.AdapterTimeseries {
		if _, err := s.registry.Resolve(ctx, source.ID, hash, payload); err != nil {
			// The record is staged either way; the shell can be created
			// on the next resolve.
			logger.Warnf("resolving mapping for source %s shape %s: %v", source.ID, hash, err)
		}
	}

	if err := s.imports.AddCounts(ctx, imp.ID, 1, 0, 0); err != nil {
		logger.Warnf("updating import %s counts: %v", imp.ID, err)
	}
	return nil
}

// CloseImport transitions an import to a terminal state.
func (s *Stager) CloseImport(ctx context.Context, importID string, status domain.ImportStatus, message string) error {
	return s.imports.SetStatus(ctx, importID, status, message)
}
