package service

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"dataloom/internal/adapter"
	"dataloom/internal/domain"
	"dataloom/internal/repository"
	"dataloom/pkg/logger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Stats counts pipeline throughput since process start.
type Stats struct {
	received    atomic.Int64
	staged      atomic.Int64
	transformed atomic.Int64
	failed      atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Received    int64 `json:"received"`
	Staged      int64 `json:"staged"`
	Transformed int64 `json:"transformed"`
	Failed      int64 `json:"failed"`
}

// Snapshot reads all counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received:    s.received.Load(),
		Staged:      s.staged.Load(),
		Transformed: s.transformed.Load(),
		Failed:      s.failed.Load(),
	}
}

// Service is the application facade the API layer talks to. It owns
// source lifecycle, dispatches pushes to adapters, keeps the scheduler
// in sync with source state and runs the retention sweep.
type Service struct {
	sources   repository.SourceRepository
	imports   repository.ImportRepository
	staging   repository.StagingRepository
	registry  *Registry
	processor *Processor
	adapters  *adapter.Set
	scheduler *adapter.Scheduler
	stats     *Stats

	retentionSweep time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewService creates the facade.
func NewService(sources repository.SourceRepository, imports repository.ImportRepository, staging repository.StagingRepository, registry *Registry, processor *Processor, adapters *adapter.Set, scheduler *adapter.Scheduler, stats *Stats, retentionSweep time.Duration) *Service {
	return &Service{
		sources:        sources,
		imports:        imports,
		staging:        staging,
		registry:       registry,
		processor:      processor,
		adapters:       adapters,
		scheduler:      scheduler,
		stats:          stats,
		retentionSweep: retentionSweep,
		stop:           make(chan struct{}),
	}
}

// Registry exposes mapping management to the API layer.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Stats exposes the throughput counters.
func (s *Service) StatsSnapshot() StatsSnapshot {
	return s.stats.Snapshot()
}

// Start schedules existing active polling sources and launches the
// background loops.
func (s *Service) Start(ctx context.Context) error {
	sources, err := s.sources.List(ctx, false)
	if err != nil {
		return errors.Wrap(err, "listing sources at startup")
	}
	for i := range sources {
		source := &sources[i]
		if source.Active && source.Kind.Polling() {
			if err := s.scheduler.Schedule(source); err != nil {
				logger.Warnf("scheduling source %s: %v", source.Name, err)
			}
		}
	}
	s.scheduler.Start()
	s.processor.Start()

	s.wg.Add(2)
	go s.retentionLoop()
	go s.statsLoop()
	return nil
}

// Close stops background work. The scheduler stops first so no new
// imports open, then the processor drains its sweep.
func (s *Service) Close() {
	s.scheduler.Stop()
	s.processor.Stop()
	close(s.stop)
	s.wg.Wait()
}

// CreateSource validates and stores a new source, scheduling it if it is
// an active polling kind.
func (s *Service) CreateSource(ctx context.Context, source *domain.DataSource) error {
	if err := source.Validate(); err != nil {
		return err
	}
	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	if err := s.sources.Create(ctx, source); err != nil {
		return err
	}
	if source.Active && source.Kind.Polling() {
		if err := s.scheduler.Schedule(source); err != nil {
			logger.Warnf("scheduling source %s: %v", source.Name, err)
		}
	}
	logger.Infof("created source %s (%s)", source.Name, source.Kind)
	return nil
}

// GetSource returns one source.
func (s *Service) GetSource(ctx context.Context, id string) (*domain.DataSource, error) {
	return s.sources.Get(ctx, id)
}

// ListSources returns sources, optionally including archived ones.
func (s *Service) ListSources(ctx context.Context, includeArchived bool) ([]domain.DataSource, error) {
	return s.sources.List(ctx, includeArchived)
}

// UpdateSource revalidates and stores a source's new configuration.
// Future staged records snapshot the new config; already staged records
// keep the snapshot they were staged with.
func (s *Service) UpdateSource(ctx context.Context, source *domain.DataSource) error {
	current, err := s.sources.Get(ctx, source.ID)
	if err != nil {
		return err
	}
	if current.Archived {
		return domain.ErrSourceArchived
	}
	if err := source.Validate(); err != nil {
		return err
	}
	if err := s.sources.Update(ctx, source); err != nil {
		return err
	}
	if current.Active && source.Kind.Polling() {
		if err := s.scheduler.Schedule(source); err != nil {
			logger.Warnf("rescheduling source %s: %v", source.Name, err)
		}
	}
	return nil
}

// SetSourceActive toggles acquisition for a source. Archived sources
// cannot be reactivated.
func (s *Service) SetSourceActive(ctx context.Context, id string, active bool) error {
	source, err := s.sources.Get(ctx, id)
	if err != nil {
		return err
	}
	if source.Archived && active {
		return domain.ErrSourceArchived
	}
	if err := s.sources.SetActive(ctx, id, active); err != nil {
		return err
	}

	if active && source.Kind.Polling() {
		source.Active = true
		if err := s.scheduler.Schedule(source); err != nil {
			logger.Warnf("scheduling source %s: %v", source.Name, err)
		}
	} else if !active {
		s.scheduler.Unschedule(id)
	}
	return nil
}

// ArchiveSource deactivates a source permanently. Its staged data and
// mappings remain readable.
func (s *Service) ArchiveSource(ctx context.Context, id string) error {
	if err := s.sources.Archive(ctx, id); err != nil {
		return err
	}
	s.scheduler.Unschedule(id)
	logger.Infof("archived source %s", id)
	return nil
}

// DeleteSource removes a source and cascades to its staged records.
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	if _, err := s.sources.Get(ctx, id); err != nil {
		return err
	}
	s.scheduler.Unschedule(id)

	removed, err := s.staging.DeleteBySource(ctx, id)
	if err != nil {
		return errors.Wrap(err, "deleting staged records")
	}
	if err := s.sources.Delete(ctx, id); err != nil {
		return err
	}
	logger.Infof("deleted source %s and %d staged records", id, removed)
	return nil
}

// Receive dispatches a pushed body to the source's adapter. Inactive and
// archived sources refuse data.
func (s *Service) Receive(ctx context.Context, sourceID string, body io.Reader, contentType string) (*domain.ImportSummary, error) {
	source, err := s.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source.Archived {
		return nil, domain.ErrSourceArchived
	}
	if !source.Active {
		return nil, domain.ErrSourceInactive
	}

	a, err := s.adapters.For(source.Kind)
	if err != nil {
		return nil, err
	}
	s.stats.received.Add(1)
	return a.Receive(ctx, source, body, contentType)
}

// Reprocess re-runs transformation over a source's failed and pending
// records.
func (s *Service) Reprocess(ctx context.Context, sourceID string) (*domain.ReprocessSummary, error) {
	source, err := s.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return s.processor.Reprocess(ctx, source)
}

// GetImport returns one import.
func (s *Service) GetImport(ctx context.Context, id string) (*domain.Import, error) {
	return s.imports.Get(ctx, id)
}

// ListImports returns a source's imports, newest first.
func (s *Service) ListImports(ctx context.Context, sourceID string, limit int64) ([]domain.Import, error) {
	return s.imports.ListBySource(ctx, sourceID, limit)
}

// GetStagedRecord returns one staged record with its payload and errors.
func (s *Service) GetStagedRecord(ctx context.Context, id string) (*domain.StagedRecord, error) {
	return s.staging.Get(ctx, id)
}

// ListStagedRecords returns a source's records in one status.
func (s *Service) ListStagedRecords(ctx context.Context, sourceID string, status domain.RecordStatus, limit int64) ([]domain.StagedRecord, error) {
	return s.staging.ListByStatus(ctx, sourceID, status, limit)
}

// retentionLoop deletes staged records past each source's retention
// window. A retention of zero keeps records forever.
func (s *Service) retentionLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.retentionSweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepRetention()
		case <-s.stop:
			return
		}
	}
}

func (s *Service) sweepRetention() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sources, err := s.sources.List(ctx, true)
	if err != nil {
		logger.Errorf("listing sources for retention: %v", err)
		return
	}

	for i := range sources {
		source := &sources[i]
		if source.Config.RetentionDays <= 0 {
			continue
		}
		cutoff := time.Now().AddDate(0, 0, -source.Config.RetentionDays)
		removed, err := s.staging.DeleteOlderThan(ctx, source.ID, cutoff)
		if err != nil {
			logger.Errorf("retention sweep of %s: %v", source.Name, err)
			continue
		}
		if removed > 0 {
			logger.Infof("retention removed %d records from %s", removed, source.Name)
		}
	}
}

// statsLoop logs throughput once a minute so operators can watch the
// pipeline from the log stream alone.
func (s *Service) statsLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := s.stats.Snapshot()
			logger.Infof("pipeline totals: received=%d staged=%d transformed=%d failed=%d",
				snap.Received, snap.Staged, snap.Transformed, snap.Failed)
		case <-s.stop:
			return
		}
	}
}
