package allocation

import "sync"

// keyedLocks hands out one RWMutex per id. Item locks are only ever taken
// exclusively; list locks are shared by commits and exclusive while the
// list is being destroyed.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.RWMutex
}

func (l *keyedLocks) get(id int64) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locks == nil {
		l.locks = make(map[int64]*sync.RWMutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[id] = m
	}
	return m
}

func (l *keyedLocks) lock(id int64) func() {
	m := l.get(id)
	m.Lock()
	return m.Unlock
}

func (l *keyedLocks) rlock(id int64) func() {
	m := l.get(id)
	m.RLock()
	return m.RUnlock
}

// forget drops the entry for an id that will not be used again. Holders of
// the old mutex are unaffected.
func (l *keyedLocks) forget(id int64) {
	l.mu.Lock()
	delete(l.locks, id)
	l.mu.Unlock()
}
