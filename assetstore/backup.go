package assetstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const backupTimeLayout = "20060102-150405.000"

// Backup writes a consistent copy of the database into dir with VACUUM INTO
// and removes all but the newest keep copies. keep of zero or less keeps
// every copy. It returns the path of the new copy.
func (s *Store) Backup(ctx context.Context, dir string, keep int) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	prefix := s.backupPrefix()
	dest := filepath.Join(dir, prefix+s.now().UTC().Format(backupTimeLayout)+".db")

	err := s.locks.execute(readOperation, func() error {
		return s.withRetry(ctx, "backup", func() error {
			s.logQuery("backup", "VACUUM INTO ?", []interface{}{dest})
			if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
				return fmt.Errorf("failed to write backup: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("backup written", "path", dest)

	if keep > 0 {
		if err := rotateBackups(dir, prefix, keep); err != nil {
			return dest, err
		}
	}
	return dest, nil
}

func (s *Store) backupPrefix() string {
	base := "memory"
	if s.path != MemoryPath {
		base = strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	}
	return base + "-backup-"
}

// rotateBackups removes the oldest copies beyond keep. Names embed a sortable
// timestamp, so lexical order is age order.
func rotateBackups(dir, prefix string, keep int) error {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.db"))
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(matches) <= keep {
		return nil
	}
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-keep] {
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", old, err)
		}
	}
	return nil
}
