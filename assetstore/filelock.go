package assetstore

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/flock"

	"github.com/arthur-debert/assetstore/types"
)

// FileLock defines the interface for file locking operations
type FileLock interface {
	// TryLockContext attempts to acquire an exclusive lock with retries
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)

	// Unlock releases the lock
	Unlock() error
}

// FileLockFactory creates FileLock instances
type FileLockFactory interface {
	// New creates a new FileLock for the given path
	New(path string) FileLock
}

// FlockFactory creates advisory locks with github.com/gofrs/flock.
type FlockFactory struct{}

// New implements FileLockFactory.New
func (f *FlockFactory) New(path string) FileLock {
	return flock.New(path)
}

const lockRetryInterval = 50 * time.Millisecond

// acquireWriterLock takes the cross-process writer lock. The lock lives on a
// sidecar file, never on the database itself, so copying the database is
// never blocked by it.
func (s *Store) acquireWriterLock(ctx context.Context, op string) (func(), error) {
	if s.fileLock == nil {
		return func() {}, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if !locked {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &types.StoreLockedError{
			Operation:    op,
			Attempts:     int(s.lockTimeout / lockRetryInterval),
			WrappedError: errors.New("writer lock held by another process"),
		}
	}

	return func() {
		if err := s.fileLock.Unlock(); err != nil {
			s.logger.Warn("failed to release writer lock", "error", err)
		}
	}, nil
}
