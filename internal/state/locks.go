package state

import "sync"

// projectLock is a counting mutex: the refcount lets the registry drop locks
// for idle projects without racing a goroutine that is about to acquire one.
type projectLock struct {
	mu   sync.Mutex
	refs int
}

type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*projectLock
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*projectLock)}
}

func (r *lockRegistry) acquire(projectID string) *projectLock {
	r.mu.Lock()
	l, ok := r.locks[projectID]
	if !ok {
		l = &projectLock{}
		r.locks[projectID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return l
}

func (r *lockRegistry) release(projectID string, l *projectLock) {
	l.mu.Unlock()

	r.mu.Lock()
	l.refs--
	if l.refs <= 0 {
		delete(r.locks, projectID)
	}
	r.mu.Unlock()
}

// WithProjectLock serializes fn against every other mutation of the same
// project. The lock is non-reentrant.
func (s *stateStore) WithProjectLock(projectID string, fn func() error) error {
	l := s.registry.acquire(projectID)
	defer s.registry.release(projectID, l)
	return fn()
}
