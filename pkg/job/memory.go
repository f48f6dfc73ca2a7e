package job

import (
	"context"
	"sort"
	"sync"

	"github.com/posterforge/posterforge/pkg/errors"
)

// MemoryStore keeps jobs in process memory. It is the default backend
// for single-instance deployments; state is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(ctx context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return errors.New(errors.ErrCodeInternal, "job %q already exists", j.ID)
	}
	s.jobs[j.ID] = clone(j)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, NotFound(id)
	}
	return clone(j), nil
}

// Update applies fn under the store lock. The mutation runs on a copy
// and commits only when the lifecycle rules accept it, so a rejected
// transition leaves the stored job untouched.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*Job)) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[id]
	if !ok {
		return nil, NotFound(id)
	}
	next := clone(current)
	if err := apply(next, fn); err != nil {
		return nil, err
	}
	s.jobs[id] = next
	return clone(next), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return NotFound(id)
	}
	delete(s.jobs, id)
	return nil
}

// List returns all jobs, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, clone(j))
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

// clone copies a job including its warnings slice so callers can never
// alias store-internal state.
func clone(j *Job) *Job {
	c := *j
	if j.Warnings != nil {
		c.Warnings = append([]string(nil), j.Warnings...)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
