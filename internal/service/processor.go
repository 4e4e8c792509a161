package service

import (
	"context"
	"sync"
	"time"

	"dataloom/internal/domain"
	"dataloom/internal/repository"
	"dataloom/pkg/logger"
)

// Processor is the transformation consumer. It sweeps unprocessed staged
// records on an interval, groups them by (source, shape) and processes
// groups concurrently while keeping every group internally serial, which
// preserves arrival order wherever an update-policy transformation may
// depend on entities created by earlier records.
type Processor struct {
	staging   repository.StagingRepository
	sources   repository.SourceRepository
	registry  *Registry
	engine    *Engine
	persister *Persister
	stats     *Stats

	batchSize int64
	interval  time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewProcessor creates the consumer.
func NewProcessor(staging repository.StagingRepository, sources repository.SourceRepository, registry *Registry, engine *Engine, persister *Persister, stats *Stats, batchSize int, interval time.Duration) *Processor {
	return &Processor{
		staging:   staging,
		sources:   sources,
		registry:  registry,
		engine:    engine,
		persister: persister,
		stats:     stats,
		batchSize: int64(batchSize),
		interval:  interval,
		stop:      make(chan struct{}),
	}
}

// Start recovers records a previous run left mid-flight, then begins the
// sweep loop. Records found transforming at startup simply re-run; the
// engine's intents are idempotent per record.
func (p *Processor) Start() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stuck, err := p.staging.ListByStatus(ctx, "", domain.RecordTransforming, 0)
	if err != nil {
		logger.Warnf("recovering in-flight records: %v", err)
	}
	for _, record := range stuck {
		if err := p.staging.SetStatus(ctx, record.ID, domain.RecordStaged); err != nil {
			logger.Warnf("resetting record %s: %v", record.ID, err)
		}
	}
	if len(stuck) > 0 {
		logger.Infof("requeued %d records left transforming by a previous run", len(stuck))
	}

	p.wg.Add(1)
	go p.loop()
}

// Stop ends the sweep loop, letting an in-flight sweep finish.
func (p *Processor) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *Processor) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.sweep()
		case <-p.stop:
			return
		}
	}
}

func (p *Processor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	records, err := p.staging.ListUnprocessed(ctx, "", "", p.batchSize)
	if err != nil {
		logger.Errorf("listing unprocessed records: %v", err)
		return
	}
	if len(records) == 0 {
		return
	}

	// Group by (source, shape); slices keep arrival order because the
	// repository returns records oldest first.
	type groupKey struct{ source, shape string }
	groups := make(map[groupKey][]domain.StagedRecord)
	var order []groupKey
	for _, record := range records {
		key := groupKey{record.DataSourceID, record.ShapeHash}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], record)
	}

	var wg sync.WaitGroup
	for _, key := range order {
		group := groups[key]
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.processGroup(ctx, group)
		}()
	}
	wg.Wait()
}

// processGroup runs one (source, shape) group serially in arrival order.
func (p *Processor) processGroup(ctx context.Context, records []domain.StagedRecord) {
	source, err := p.sources.Get(ctx, records[0].DataSourceID)
	if err != nil {
		logger.Errorf("loading source %s: %v", records[0].DataSourceID, err)
		return
	}

	var mapping *domain.TypeMapping
	if source.Kind != domain.AdapterTimeseries {
		resolution, err := p.registry.Resolve(ctx, source.ID, records[0].ShapeHash, records[0].Payload)
		if err != nil {
			logger.Errorf("resolving mapping for source %s: %v", source.ID, err)
			return
		}
		mapping = resolution.Mapping
		if !mapping.Active || len(mapping.Transformations) == 0 {
			// Staged records accumulate until an operator activates the
			// mapping; nothing to do this sweep.
			return
		}
	}

	for i := range records {
		record := &records[i]
		if _, err := p.ProcessRecord(ctx, source, mapping, record, nil); err != nil {
			logger.Errorf("processing record %s: %v", record.ID, err)
		}
	}
}

// ProcessRecord transforms and persists one staged record. A non-nil
// filter restricts the run to previously failed intents (reprocessing a
// partially-inserted record).
func (p *Processor) ProcessRecord(ctx context.Context, source *domain.DataSource, mapping *domain.TypeMapping, record *domain.StagedRecord, filter IntentFilter) (domain.RecordStatus, error) {
	if err := p.staging.SetStatus(ctx, record.ID, domain.RecordTransforming); err != nil {
		return "", err
	}

	var result *TransformResult
	if source.Kind == domain.AdapterTimeseries {
		result = p.engine.TransformTimeseries(record)
	} else {
		result = p.engine.Transform(mapping, record, filter)
	}

	status, err := p.persister.Persist(ctx, record, result)
	if err != nil {
		return status, err
	}

	p.stats.transformed.Add(1)
	if status == domain.RecordErrored || status == domain.RecordPartiallyInserted {
		p.stats.failed.Add(1)
	}
	return status, nil
}

// Reprocess synchronously re-runs transformation over a source's staged,
// errored and partially-inserted records. Partially-inserted records
// re-run only their previously failed intents so successful create-policy
// inserts are never duplicated. Failures are surfaced, not retried.
func (p *Processor) Reprocess(ctx context.Context, source *domain.DataSource) (*domain.ReprocessSummary, error) {
	summary := &domain.ReprocessSummary{}

	for _, status := range []domain.RecordStatus{domain.RecordErrored, domain.RecordStaged, domain.RecordPartiallyInserted} {
		records, err := p.staging.ListByStatus(ctx, source.ID, status, 0)
		if err != nil {
			return nil, err
		}

		for i := range records {
			record := &records[i]

			var mapping *domain.TypeMapping
			if source.Kind != domain.AdapterTimeseries {
				resolution, err := p.registry.Resolve(ctx, source.ID, record.ShapeHash, record.Payload)
				if err != nil {
					return nil, err
				}
				mapping = resolution.Mapping
				if !mapping.Active || len(mapping.Transformations) == 0 {
					continue
				}
			}

			var filter IntentFilter
			if status == domain.RecordPartiallyInserted {
				filter = failedIntentFilter(record)
				if len(filter) == 0 {
					continue
				}
			}

			if err := p.staging.ClearErrors(ctx, record.ID, filterIDs(filter)); err != nil {
				return nil, err
			}

			summary.Total++
			outcome, err := p.ProcessRecord(ctx, source, mapping, record, filter)
			if err != nil {
				return summary, err
			}
			switch outcome {
			case domain.RecordInserted:
				summary.Succeeded++
			default:
				summary.Failed++
			}
		}
	}

	return summary, nil
}

// failedIntentFilter rebuilds the set of failed (transformation, index)
// pairs from a record's error list.
func failedIntentFilter(record *domain.StagedRecord) IntentFilter {
	filter := IntentFilter{}
	for _, recErr := range record.Errors {
		if recErr.TransformationID == "" {
			continue
		}
		if filter[recErr.TransformationID] == nil {
			filter[recErr.TransformationID] = map[int]bool{}
		}
		filter[recErr.TransformationID][recErr.Index] = true
	}
	return filter
}

func filterIDs(filter IntentFilter) []string {
	ids := make([]string, 0, len(filter))
	for id := range filter {
		ids = append(ids, id)
	}
	return ids
}
