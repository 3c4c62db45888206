package concurrency

import (
	"sync"
)

// LockManager hands out one mutex per name
type LockManager struct {
	locks sync.Map
}

// NewLockManager creates a new LockManager
func NewLockManager() *LockManager {
	return &LockManager{}
}

// GetLock returns a mutex for the given key
func (lm *LockManager) GetLock(key string) *sync.Mutex {
	lock, _ := lm.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// TryWithLock runs fn while holding the named lock. It returns false without
// running fn when the lock is already held.
func (lm *LockManager) TryWithLock(key string, fn func()) bool {
	mu := lm.GetLock(key)
	if !mu.TryLock() {
		return false
	}
	defer mu.Unlock()
	fn()
	return true
}
