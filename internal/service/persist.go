package service

import (
	"context"
	"fmt"
	"time"

	"dataloom/internal/domain"
	"dataloom/internal/repository"
	"dataloom/pkg/logger"
)

// Persister bulk-writes a record's intents and settles the record's
// terminal state. Partial failure inside a batch never discards sibling
// successes; each intent's outcome is recorded independently.
type Persister struct {
	graph      repository.GraphWriter
	timeseries repository.TimeseriesWriter
	staging    repository.StagingRepository
	imports    repository.ImportRepository
}

// NewPersister creates the persister.
func NewPersister(graph repository.GraphWriter, timeseries repository.TimeseriesWriter, staging repository.StagingRepository, imports repository.ImportRepository) *Persister {
	return &Persister{
		graph:      graph,
		timeseries: timeseries,
		staging:    staging,
		imports:    imports,
	}
}

// Persist writes all intents of one transformed record, records failures
// on the staged record, and moves it to its terminal status:
// inserted when everything landed, partially_inserted when some intents
// failed, errored when nothing landed.
func (p *Persister) Persist(ctx context.Context, record *domain.StagedRecord, result *TransformResult) (domain.RecordStatus, error) {
	var graphIntents, rowIntents []domain.Intent
	for _, intent := range result.Intents {
		if intent.Kind == domain.TargetTimeseries {
			rowIntents = append(rowIntents, intent)
		} else {
			graphIntents = append(graphIntents, intent)
		}
	}

	failures := append([]domain.RecordError{}, result.Errors...)
	succeeded := 0

	if len(graphIntents) > 0 {
		for _, res := range p.graph.WriteBulk(ctx, graphIntents) {
			if res.Error != "" {
				failures = append(failures, intentFailure(res))
			} else {
				succeeded++
			}
		}
	}

	if len(rowIntents) > 0 {
		measurement := "ts_" + record.DataSourceID
		for _, res := range p.timeseries.WriteRows(ctx, measurement, record.ConfigSnapshot, rowIntents) {
			if res.Error != "" {
				failures = append(failures, intentFailure(res))
			} else {
				succeeded++
			}
		}
	}

	status := settleStatus(succeeded, len(failures))

	if err := p.staging.RecordErrors(ctx, record.ID, failures); err != nil {
		return status, err
	}

	if succeeded > 0 {
		if err := p.staging.MarkInserted(ctx, record.ID, status, time.Now()); err != nil {
			return status, err
		}
	} else if err := p.staging.SetStatus(ctx, record.ID, status); err != nil {
		return status, err
	}

	var inserted, errored int64
	if status == domain.RecordInserted || status == domain.RecordPartiallyInserted {
		inserted = 1
	}
	if status == domain.RecordErrored || status == domain.RecordPartiallyInserted {
		errored = 1
	}
	if err := p.imports.AddCounts(ctx, record.ImportID, 0, inserted, errored); err != nil {
		logger.Warnf("updating import %s counts: %v", record.ImportID, err)
	}

	return status, nil
}

// settleStatus maps a persistence run's tallies onto the record's
// terminal state. A record that produced no intents and no errors (for
// example every element filtered out by conditions) settles as inserted
// too: it is fully processed, but inserted_at stays unset because
// nothing was written.
func settleStatus(succeeded, failed int) domain.RecordStatus {
	switch {
	case failed == 0:
		return domain.RecordInserted
	case succeeded > 0:
		return domain.RecordPartiallyInserted
	default:
		return domain.RecordErrored
	}
}

func intentFailure(res domain.IntentResult) domain.RecordError {
	return domain.RecordError{
		TransformationID: res.TransformationID,
		Index:            res.Index,
		Message:          fmt.Sprintf("persisting intent %s: %s", res.IntentID, res.Error),
		OccurredAt:       time.Now(),
	}
}
