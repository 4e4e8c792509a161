package adapter

import (
	"context"
	"strings"
	"testing"

	"dataloom/internal/domain"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	imports  []*domain.Import
	staged   []map[string]interface{}
	closed   map[string]domain.ImportStatus
	stageErr error
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{closed: map[string]domain.ImportStatus{}}
}

func (f *fakePipeline) OpenImport(ctx context.Context, sourceID string) (*domain.Import, error) {
	imp := &domain.Import{ID: "imp-1", DataSourceID: sourceID, Status: domain.ImportProcessing}
	f.imports = append(f.imports, imp)
	return imp, nil
}

func (f *fakePipeline) Stage(ctx context.Context, imp *domain.Import, source *domain.DataSource, payload map[string]interface{}) error {
	if f.stageErr != nil {
		return f.stageErr
	}
	f.staged = append(f.staged, payload)
	return nil
}

func (f *fakePipeline) CloseImport(ctx context.Context, importID string, status domain.ImportStatus, message string) error {
	f.closed[importID] = status
	return nil
}

func standardSource() *domain.DataSource {
	return &domain.DataSource{ID: "src-1", Name: "uploads", Kind: domain.AdapterStandard, Active: true}
}

func TestStandardReceiveJSONObject(t *testing.T) {
	pipeline := newFakePipeline()
	a := NewStandard(pipeline)

	summary, err := a.Receive(context.Background(), standardSource(),
		strings.NewReader(`{"device": "pump-1", "value": 42}`), "application/json")
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Total)
	assert.Equal(t, int64(1), summary.Staged)
	require.Len(t, pipeline.staged, 1)
	assert.Equal(t, "pump-1", pipeline.staged[0]["device"])
	assert.Equal(t, domain.ImportCompleted, pipeline.closed["imp-1"])
}

func TestStandardReceiveJSONArray(t *testing.T) {
	pipeline := newFakePipeline()
	a := NewStandard(pipeline)

	summary, err := a.Receive(context.Background(), standardSource(),
		strings.NewReader(`[{"device": "a"}, {"device": "b"}]`), "application/json")
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Staged)
	assert.Len(t, pipeline.staged, 2)
}

func TestStandardReceiveCSV(t *testing.T) {
	pipeline := newFakePipeline()
	a := NewStandard(pipeline)

	summary, err := a.Receive(context.Background(), standardSource(),
		strings.NewReader("device,value\npump-1,42\n"), "text/csv")
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Staged)
	require.Len(t, pipeline.staged, 1)
	assert.Equal(t, "42", pipeline.staged[0]["value"])
}

func TestStandardReceiveRejectsScalars(t *testing.T) {
	pipeline := newFakePipeline()
	a := NewStandard(pipeline)

	_, err := a.Receive(context.Background(), standardSource(),
		strings.NewReader(`[1, 2, 3]`), "application/json")
	assert.Error(t, err)
	assert.Empty(t, pipeline.imports)
}

func TestStandardPollUnsupported(t *testing.T) {
	a := NewStandard(newFakePipeline())
	_, err := a.Poll(context.Background(), standardSource())
	assert.Error(t, err)
}

func TestStageBatchClosesErroredOnFailure(t *testing.T) {
	pipeline := newFakePipeline()
	pipeline.stageErr = errors.New("mongo unavailable")

	_, err := stageBatch(context.Background(), pipeline, standardSource(),
		[]map[string]interface{}{{"device": "a"}})
	require.Error(t, err)
	assert.Equal(t, domain.ImportError, pipeline.closed["imp-1"])
}

func TestSetDispatch(t *testing.T) {
	set := NewSet(newFakePipeline())

	for _, kind := range []domain.AdapterKind{
		domain.AdapterStandard, domain.AdapterHTTPPoll,
		domain.AdapterJiraPoll, domain.AdapterTimeseries,
	} {
		a, err := set.For(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, a.Kind())
	}

	_, err := set.For(domain.AdapterKind("ftp"))
	assert.Error(t, err)
}
