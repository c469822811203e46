package kitdi

import "sync"

// LockManager hands out one construction lock per key.
type LockManager struct {
	mu    sync.Mutex
	locks map[Key]*sync.Mutex
}

func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[Key]*sync.Mutex),
	}
}

func (lm *LockManager) GetLockFor(key Key) *sync.Mutex {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lock, exists := lm.locks[key]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	lm.locks[key] = lock
	return lock
}

// ReleaseLock forgets the lock of a key. Only call it once the key is cached, goroutines still
// waiting on the old lock will find the instance when they get it.
func (lm *LockManager) ReleaseLock(key Key) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	delete(lm.locks, key)
}

func (lm *LockManager) Len() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return len(lm.locks)
}
