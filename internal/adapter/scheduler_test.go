package adapter

import (
	"context"
	"sync/atomic"
	"testing"

	"dataloom/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSourceGetter struct {
	source *domain.DataSource
	gets   atomic.Int64
}

func (f *fakeSourceGetter) Get(ctx context.Context, id string) (*domain.DataSource, error) {
	f.gets.Add(1)
	if f.source == nil || f.source.ID != id {
		return nil, domain.ErrNotFound
	}
	copy := *f.source
	return &copy, nil
}

func pollingSource(active bool) *domain.DataSource {
	return &domain.DataSource{
		ID: "src-1", Name: "poller", Kind: domain.AdapterHTTPPoll,
		Active: active,
		Config: domain.AdapterConfig{Endpoint: "http://127.0.0.1:1", PollInterval: 30},
	}
}

func TestSchedulerSkipsNonPollingKinds(t *testing.T) {
	set := NewSet(newFakePipeline())
	s := NewScheduler(set, &fakeSourceGetter{})

	require.NoError(t, s.Schedule(standardSource()))
	assert.Empty(t, s.entries)
}

func TestSchedulerScheduleAndUnschedule(t *testing.T) {
	set := NewSet(newFakePipeline())
	s := NewScheduler(set, &fakeSourceGetter{})

	source := pollingSource(true)
	require.NoError(t, s.Schedule(source))
	assert.Len(t, s.entries, 1)

	// Rescheduling replaces the entry rather than stacking a second one.
	require.NoError(t, s.Schedule(source))
	assert.Len(t, s.entries, 1)

	s.Unschedule(source.ID)
	assert.Empty(t, s.entries)
}

func TestSchedulerTickHonorsDeactivation(t *testing.T) {
	pipeline := newFakePipeline()
	set := NewSet(pipeline)
	getter := &fakeSourceGetter{source: pollingSource(false)}
	s := NewScheduler(set, getter)

	// The source was deactivated after scheduling; the tick re-fetches it
	// and must not poll.
	s.tick("src-1")
	assert.Equal(t, int64(1), getter.gets.Load())
	assert.Empty(t, pipeline.imports)
}

func TestSchedulerTickUnknownSource(t *testing.T) {
	set := NewSet(newFakePipeline())
	s := NewScheduler(set, &fakeSourceGetter{})

	// Must not panic; the source may have been deleted since scheduling.
	s.tick("src-gone")
}
