package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dataloom/internal/domain"
	"dataloom/pkg/logger"

	"github.com/robfig/cron/v3"
)

// SourceGetter re-fetches a source at tick time so a deactivation that
// raced the schedule is honored before any network call.
type SourceGetter interface {
	Get(ctx context.Context, id string) (*domain.DataSource, error)
}

// Scheduler drives the polling adapters on each source's configured
// interval. Ticks that land while the previous poll for the same source
// is still running are skipped, not queued, so a slow upstream never
// builds a backlog of overlapping polls.
type Scheduler struct {
	cron    *cron.Cron
	set     *Set
	sources SourceGetter

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewScheduler creates the scheduler. Jobs are chained with
// SkipIfStillRunning and panic recovery.
func NewScheduler(set *Set, sources SourceGetter) *Scheduler {
	cl := cronLogger{}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		set:     set,
		sources: sources,
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins running scheduled polls.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight polls to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Schedule registers a polling source at its configured interval,
// replacing any existing entry for the same source.
func (s *Scheduler) Schedule(source *domain.DataSource) error {
	if !source.Kind.Polling() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[source.ID]; ok {
		s.cron.Remove(id)
		delete(s.entries, source.ID)
	}

	sourceID := source.ID
	spec := fmt.Sprintf("@every %ds", source.Config.PollInterval)
	id, err := s.cron.AddFunc(spec, func() { s.tick(sourceID) })
	if err != nil {
		return err
	}
	s.entries[sourceID] = id
	logger.Infof("scheduled source %s every %ds", source.Name, source.Config.PollInterval)
	return nil
}

// Unschedule removes a source's polling entry if one exists.
func (s *Scheduler) Unschedule(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[sourceID]; ok {
		s.cron.Remove(id)
		delete(s.entries, sourceID)
	}
}

// tick runs one poll cycle for a source.
func (s *Scheduler) tick(sourceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	source, err := s.sources.Get(ctx, sourceID)
	if err != nil {
		logger.Errorf("loading source %s for poll: %v", sourceID, err)
		return
	}
	if !source.Active || source.Archived {
		return
	}

	a, err := s.set.For(source.Kind)
	if err != nil {
		logger.Errorf("polling source %s: %v", source.Name, err)
		return
	}

	if _, err := a.Poll(ctx, source); err != nil {
		logger.Warnf("poll of %s failed: %v", source.Name, err)
	}
}

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
