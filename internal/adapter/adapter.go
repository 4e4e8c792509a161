// Package adapter implements the acquisition strategies that feed the
// staging store: manual upload, HTTP polling, Jira polling and
// time-series append. One implementation per kind behind a common
// interface; the scheduler drives the polling kinds.
package adapter

import (
	"context"
	"io"

	"dataloom/internal/domain"

	"github.com/pkg/errors"
)

// Pipeline is what adapters need from the ingestion side: open an
// import, stage payloads under it, close it. The staging service
// implements this.
type Pipeline interface {
	OpenImport(ctx context.Context, sourceID string) (*domain.Import, error)
	Stage(ctx context.Context, imp *domain.Import, source *domain.DataSource, payload map[string]interface{}) error
	CloseImport(ctx context.Context, importID string, status domain.ImportStatus, message string) error
}

// Adapter is one acquisition strategy.
type Adapter interface {
	Kind() domain.AdapterKind
	// Receive accepts pushed data. Polling kinds reject it.
	Receive(ctx context.Context, source *domain.DataSource, body io.Reader, contentType string) (*domain.ImportSummary, error)
	// Poll pulls one batch from the external system. Push kinds reject it.
	Poll(ctx context.Context, source *domain.DataSource) (*domain.ImportSummary, error)
}

// Set holds the closed set of adapters, one per kind.
type Set struct {
	adapters map[domain.AdapterKind]Adapter
}

// NewSet builds every adapter over the shared pipeline.
func NewSet(pipeline Pipeline) *Set {
	set := &Set{adapters: make(map[domain.AdapterKind]Adapter)}
	for _, a := range []Adapter{
		NewStandard(pipeline),
		NewHTTPPoll(pipeline),
		NewJiraPoll(pipeline),
		NewTimeseries(pipeline),
	} {
		set.adapters[a.Kind()] = a
	}
	return set
}

// For returns the adapter for a kind.
func (s *Set) For(kind domain.AdapterKind) (Adapter, error) {
	a, ok := s.adapters[kind]
	if !ok {
		return nil, errors.Errorf("no adapter registered for kind %q", kind)
	}
	return a, nil
}

// stageBatch stages a slice of payloads under a fresh import and closes
// the import with aggregate counts. A staging write failure closes the
// import as errored and reports the error so the caller's next cycle
// retries the whole batch; consumption is idempotent per record, so
// at-least-once delivery into staging is safe.
func stageBatch(ctx context.Context, pipeline Pipeline, source *domain.DataSource, payloads []map[string]interface{}) (*domain.ImportSummary, error) {
	imp, err := pipeline.OpenImport(ctx, source.ID)
	if err != nil {
		return nil, errors.Wrap(err, "opening import")
	}

	summary := &domain.ImportSummary{ImportID: imp.ID, Total: int64(len(payloads))}
	for _, payload := range payloads {
		if err := pipeline.Stage(ctx, imp, source, payload); err != nil {
			pipeline.CloseImport(ctx, imp.ID, domain.ImportError, err.Error())
			return summary, errors.Wrap(err, "staging payload")
		}
		summary.Staged++
	}

	if err := pipeline.CloseImport(ctx, imp.ID, domain.ImportCompleted, ""); err != nil {
		return summary, errors.Wrap(err, "closing import")
	}
	return summary, nil
}
