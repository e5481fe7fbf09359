package sync

import (
	"sync"
)

// KeyLock provides per-key mutual exclusion. Async review submissions
// use it to suppress duplicate work on the same review target.
type KeyLock struct {
	locks sync.Map
}

func NewKeyLock() *KeyLock {
	return &KeyLock{}
}

// Lock acquires the mutex for key, creating it on first use.
func (l *KeyLock) Lock(key string) {
	val, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	val.(*sync.Mutex).Lock()
}

// Unlock releases the mutex for key. Unlocking a key that was never
// locked is a no-op.
func (l *KeyLock) Unlock(key string) {
	val, ok := l.locks.Load(key)
	if !ok {
		return
	}
	val.(*sync.Mutex).Unlock()
	// Entries are kept for reuse. Targets repeat, and the per-entry cost
	// is one mutex; safe cleanup would need reference counting.
}

// TryLock attempts to acquire the mutex for key without blocking.
func (l *KeyLock) TryLock(key string) bool {
	val, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	return val.(*sync.Mutex).TryLock()
}
