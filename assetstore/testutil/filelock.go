package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/arthur-debert/assetstore/assetstore"
)

// MockFileLock is an in-memory writer lock. SetHeldElsewhere simulates
// another process owning the lock.
type MockFileLock struct {
	mu            sync.Mutex
	locked        bool
	heldElsewhere bool

	LockAttempts   int
	UnlockAttempts int
}

// TryLockContext implements assetstore.FileLock.
func (m *MockFileLock) TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LockAttempts++
	if m.locked || m.heldElsewhere {
		return false, context.DeadlineExceeded
	}
	m.locked = true
	return true, nil
}

// Unlock implements assetstore.FileLock.
func (m *MockFileLock) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UnlockAttempts++
	m.locked = false
	return nil
}

// IsLocked reports whether the store currently holds the lock.
func (m *MockFileLock) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// SetHeldElsewhere makes every lock attempt fail while held is true.
func (m *MockFileLock) SetHeldElsewhere(held bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heldElsewhere = held
}

// MockFileLockFactory hands out one MockFileLock per path.
type MockFileLockFactory struct {
	mu    sync.Mutex
	locks map[string]*MockFileLock
}

// New implements assetstore.FileLockFactory.
func (f *MockFileLockFactory) New(path string) assetstore.FileLock {
	return f.Lock(path)
}

// Lock returns the mock for path, creating it on first use.
func (f *MockFileLockFactory) Lock(path string) *MockFileLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks == nil {
		f.locks = make(map[string]*MockFileLock)
	}
	l, ok := f.locks[path]
	if !ok {
		l = &MockFileLock{}
		f.locks[path] = l
	}
	return l
}
