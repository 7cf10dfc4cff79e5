package assetstore

import "sync"

// operationType selects the lock a store operation takes.
type operationType int

const (
	// readOperation may run alongside other reads. Used by operations that
	// need a stable view of the schema, such as backups and template
	// comparisons.
	readOperation operationType = iota

	// writeOperation is exclusive. Schema synchronization, bulk changes and
	// record writes all take it, so no two of them interleave in-process.
	writeOperation
)

// lockManager serializes store writers within the process. Plain queries do
// not take it; they rely on SQLite's WAL isolation instead.
type lockManager struct {
	mu sync.RWMutex
}

func newLockManager() *lockManager { return &lockManager{} }

// execute runs fn holding the lock for opType.
func (lm *lockManager) execute(opType operationType, fn func() error) error {
	switch opType {
	case readOperation:
		lm.mu.RLock()
		defer lm.mu.RUnlock()
	case writeOperation:
		lm.mu.Lock()
		defer lm.mu.Unlock()
	}
	return fn()
}
