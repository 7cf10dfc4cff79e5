package assetstore

import (
	"context"
	"database/sql"
	"fmt"
)

// writeTx runs fn in one write transaction. It holds the in-process write
// lock and the cross-process writer lock for the duration, retries the whole
// transaction on busy errors, and rolls back on any error or panic.
func (s *Store) writeTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	return s.locks.execute(writeOperation, func() error {
		release, err := s.acquireWriterLock(ctx, op)
		if err != nil {
			return err
		}
		defer release()

		return s.withRetry(ctx, op, func() error {
			return s.runTx(ctx, fn)
		})
	})
}

func (s *Store) runTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
