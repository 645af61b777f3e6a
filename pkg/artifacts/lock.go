package artifacts

import (
	"sync"
	"time"
)

// lease is one in-flight computation guard with a reference count so unused
// entries can be reclaimed.
type lease struct {
	mu         sync.Mutex
	refs       int
	acquiredAt time.Time
}

// keyedLock serializes computations per cache key. Callers block behind the
// in-flight computation for the same key instead of duplicating it.
type keyedLock struct {
	mu     sync.Mutex
	leases map[string]*lease
}

// lock acquires the lease for the key and returns the release function.
func (k *keyedLock) lock(key string) func() {
	k.mu.Lock()
	if k.leases == nil {
		k.leases = make(map[string]*lease)
	}
	l, ok := k.leases[key]
	if !ok {
		l = &lease{}
		k.leases[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	l.acquiredAt = time.Now()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.leases, key)
		}
		k.mu.Unlock()
	}
}
