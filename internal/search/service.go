package search

import (
	"sync"

	"showcase/api/internal/project"

	"go.uber.org/zap"
)

// remoteIndex is an external index kept in step with the catalog.
type remoteIndex interface {
	Searcher
	Sync(projects []ProjectRecord) error
	// Recovered fires after the index comes back from an outage. Whatever
	// it held before may be gone.
	Recovered() <-chan struct{}
	Close()
}

// Service is the facade that tries Meilisearch first and falls back to the
// in-process index. Meilisearch only answers once it holds the latest list.
type Service struct {
	remote remoteIndex
	memory *Memory
	logger *zap.Logger

	mu      sync.Mutex
	latest  []ProjectRecord
	version uint64
	dirty   bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, logger *zap.Logger) *Service {
	if meili == nil {
		return newService(nil, logger)
	}
	return newService(meili, logger)
}

func newService(remote remoteIndex, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		remote: remote,
		memory: NewMemory(),
		logger: logger.Named("search"),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if remote != nil {
		s.wg.Add(1)
		go s.syncLoop()
	}
	return s
}

func (s *Service) Search(q Query) Response {
	if s.remoteCurrent() {
		results, total, err := s.remote.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch error, falling back to memory", zap.Error(err))
	}

	results, total, err := s.memory.Search(q)
	if err != nil {
		s.logger.Warn("memory search failed", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

func (s *Service) remoteCurrent() bool {
	if s.remote == nil || !s.remote.Healthy() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.dirty
}

// Reindex replaces both indexes with projects. The in-process index is
// updated synchronously; Meilisearch by the sync worker, which always
// pushes the newest list it has seen.
func (s *Service) Reindex(projects []project.Record) {
	records := make([]ProjectRecord, 0, len(projects))
	for _, rec := range projects {
		if rec.ID() == "" {
			continue
		}
		records = append(records, NewProjectRecord(rec))
	}
	s.memory.Sync(records)

	if s.remote == nil {
		return
	}
	s.mu.Lock()
	s.latest = records
	s.version++
	s.dirty = true
	s.mu.Unlock()
	s.signal()
}

func (s *Service) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) syncLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		case <-s.remote.Recovered():
			s.mu.Lock()
			s.dirty = true
			s.mu.Unlock()
		}
		s.syncLatest()
	}
}

// syncLatest pushes the newest list. A failed or skipped push leaves the
// index dirty until the next Reindex or recovery.
func (s *Service) syncLatest() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	records, version := s.latest, s.version
	s.mu.Unlock()

	if !s.remote.Healthy() {
		return
	}
	if err := s.remote.Sync(records); err != nil {
		s.logger.Warn("reindex projects", zap.Int("count", len(records)), zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.version == version {
		s.dirty = false
	}
	s.mu.Unlock()
}

func (s *Service) Close() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		if s.remote != nil {
			s.remote.Close()
		}
	})
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
