package service

import "sync"

// sectLocks hands out one mutex per sect id so territory commands and the
// maintenance scan never interleave on the same sect. Locks are never
// reclaimed; the sect population is small and bounded.
type sectLocks struct {
	mu    sync.Mutex
	locks map[int32]*sync.Mutex
}

func newSectLocks() *sectLocks {
	return &sectLocks{locks: make(map[int32]*sync.Mutex)}
}

// Lock acquires the sect's mutex and returns the matching unlock
func (s *sectLocks) Lock(sectID int32) func() {
	s.mu.Lock()
	l, ok := s.locks[sectID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sectID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
