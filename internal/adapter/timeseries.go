package adapter

import (
	"context"
	"io"

	"dataloom/internal/domain"

	"github.com/pkg/errors"
)

// Timeseries accepts pushed rows for append-only time-series sources.
// Rows skip the mapping registry entirely; the column definitions frozen
// into each record's config snapshot drive transformation instead.
type Timeseries struct {
	pipeline Pipeline
}

// NewTimeseries creates the time-series append adapter.
func NewTimeseries(pipeline Pipeline) *Timeseries {
	return &Timeseries{pipeline: pipeline}
}

// Kind returns the adapter kind.
func (a *Timeseries) Kind() domain.AdapterKind {
	return domain.AdapterTimeseries
}

// Receive stages pushed rows under a new import. JSON objects, JSON
// arrays and CSV files are all accepted, same as the standard adapter.
func (a *Timeseries) Receive(ctx context.Context, source *domain.DataSource, body io.Reader, contentType string) (*domain.ImportSummary, error) {
	payloads, err := decodeBody(body, contentType)
	if err != nil {
		return nil, err
	}
	return stageBatch(ctx, a.pipeline, source, payloads)
}

// Poll is not supported; time-series sources only accept pushes.
func (a *Timeseries) Poll(ctx context.Context, source *domain.DataSource) (*domain.ImportSummary, error) {
	return nil, errors.Errorf("source kind %q does not poll", a.Kind())
}
