package repository

import (
	"context"
	"fmt"
	"time"

	"dataloom/internal/config"
	"dataloom/internal/domain"
	"dataloom/pkg/logger"

	influxdb3 "github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
)

// InfluxTimeseriesRepo appends row intents into InfluxDB. Each source
// writes its own measurement; the source's declared unique columns become
// tags, so rows sharing tags and timestamp overwrite instead of
// duplicating, which is the declared uniqueness constraint.
type InfluxTimeseriesRepo struct {
	store *config.InfluxStore
}

// NewInfluxTimeseriesRepo creates the time-series writer.
func NewInfluxTimeseriesRepo(store *config.InfluxStore) *InfluxTimeseriesRepo {
	return &InfluxTimeseriesRepo{store: store}
}

// WriteRows appends rows in one batch. If the batch write fails the rows
// are retried individually so one bad row does not discard its siblings,
// and each row's outcome is reported separately.
func (r *InfluxTimeseriesRepo) WriteRows(ctx context.Context, measurement string, snapshot domain.AdapterConfig, intents []domain.Intent) []domain.IntentResult {
	results := make([]domain.IntentResult, len(intents))
	points := make([]*influxdb3.Point, len(intents))
	for i, intent := range intents {
		results[i] = domain.IntentResult{
			IntentID:         intent.ID,
			TransformationID: intent.TransformationID,
			Index:            intent.Index,
		}
		points[i] = rowToPoint(measurement, snapshot, intent)
	}

	writeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := r.store.Client.WritePoints(writeCtx, points); err == nil {
		for i, intent := range intents {
			results[i].EntityID = intent.ID
		}
		return results
	}

	// Batch failed; isolate the offending rows.
	logger.Debugf("time-series batch write failed, retrying %d rows individually", len(points))
	for i, point := range points {
		if err := r.store.Client.WritePoints(writeCtx, []*influxdb3.Point{point}); err != nil {
			results[i].Error = err.Error()
		} else {
			results[i].EntityID = intents[i].ID
		}
	}
	return results
}

// rowToPoint converts one row intent into an InfluxDB point using the
// config snapshot taken at ingest time, so later schema edits do not
// change how already-staged rows land.
func rowToPoint(measurement string, snapshot domain.AdapterConfig, intent domain.Intent) *influxdb3.Point {
	unique := make(map[string]bool, len(snapshot.Columns))
	for _, col := range snapshot.Columns {
		if col.Unique {
			unique[col.Name] = true
		}
	}

	tags := map[string]string{}
	fields := make(map[string]interface{}, len(intent.Properties))
	for name, value := range intent.Properties {
		if unique[name] {
			tags[name] = fmt.Sprintf("%v", value)
			continue
		}
		fields[name] = value
	}

	return influxdb3.NewPoint(measurement, tags, fields, intent.Timestamp)
}
