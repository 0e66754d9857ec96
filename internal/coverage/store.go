package coverage

import (
	"fmt"
	"sync"
)

// Store collects the fragments emitted during one run, keyed by job id.
// Each job may emit at most one fragment. Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	fragments map[string]*Fragment
}

// NewStore returns an empty fragment store.
func NewStore() *Store {
	return &Store{fragments: make(map[string]*Fragment)}
}

// Put parses and records the fragment produced by jobID. A second fragment
// from the same job is rejected.
func (s *Store) Put(jobID string, data []byte) error {
	f, err := ParseFragment(data)
	if err != nil {
		return fmt.Errorf("job %s: %w", jobID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.fragments[jobID]; exists {
		return fmt.Errorf("job %s emitted more than one coverage fragment", jobID)
	}
	s.fragments[jobID] = f
	return nil
}

// Fragment returns the fragment recorded for jobID, if any.
func (s *Store) Fragment(jobID string) (*Fragment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fragments[jobID]
	return f, ok
}
