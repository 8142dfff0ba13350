package history

import (
	"sync"

	"github.com/jlammi/stride/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe RunStore backed by a map.
//
// It stores and returns copies of runs, never the caller's pointer: the
// executor keeps mutating its live run record while the run is in flight,
// and history readers may poll concurrently.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*api.Run
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[string]*api.Run),
	}
}

// Ensure InMemoryStore implements the interface.
var _ RunStore = (*InMemoryStore)(nil)

// cloneRun copies a run, including the backing array of its Results.
// Output and Err are shared; the executor never mutates them after
// assignment.
func cloneRun(run *api.Run) *api.Run {
	c := *run
	if run.Results != nil {
		c.Results = make([]api.Result, len(run.Results))
		copy(c.Results, run.Results)
	}
	return &c
}

func (s *InMemoryStore) SaveRun(run *api.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *InMemoryStore) UpdateRun(run *api.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrRunNotFound
	}

	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *InMemoryStore) GetRun(id string) (*api.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}

	return cloneRun(run), nil
}

func (s *InMemoryStore) ListRuns(filter RunFilter) ([]*api.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Run

	for _, run := range s.runs {
		if filter.Name != "" && run.Name != filter.Name {
			continue
		}
		if filter.Kind != "" && run.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		result = append(result, cloneRun(run))
	}

	return result, nil
}
