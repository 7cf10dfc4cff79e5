package assetstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/arthur-debert/assetstore/types"
)

const auditTable = "asset_audit_log"

// auditBatchSize keeps multi-row inserts well under SQLite's variable limit.
const auditBatchSize = 100

func (s *Store) insertAudit(ctx context.Context, tx *sql.Tx, entries []types.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	at := s.timestamp()

	for start := 0; start < len(entries); start += auditBatchSize {
		end := start + auditBatchSize
		if end > len(entries) {
			end = len(entries)
		}

		insert := s.sqlBuilder.sq.Insert(auditTable).Columns(
			"table_name", "record_id", "action", "field",
			"old_value", "new_value", "actor", "at", "batch_id")
		for _, e := range entries[start:end] {
			actor := e.Actor
			if actor == "" {
				actor = s.actor
			}
			insert = insert.Values(s.table, e.RecordID, e.Action, e.Field,
				nullIfEmpty(e.OldValue), nullIfEmpty(e.NewValue), actor, at, e.BatchID)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build audit insert: %w", err)
		}
		s.logQuery("audit", query, args)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
	}
	return nil
}

// History returns the audit entries for a record, newest first.
func (s *Store) History(ctx context.Context, recordID int64) ([]types.AuditEntry, error) {
	query, args, err := s.sqlBuilder.sq.
		Select("id", "record_id", "action", "field", "old_value", "new_value", "actor", "at", "batch_id").
		From(auditTable).
		Where(squirrel.Eq{"table_name": s.table, "record_id": recordID}).
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}
	s.logQuery("history", query, args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []types.AuditEntry
	for rows.Next() {
		var (
			e              types.AuditEntry
			oldVal, newVal sql.NullString
			at             string
		)
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Action, &e.Field, &oldVal, &newVal, &e.Actor, &at, &e.BatchID); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.OldValue = oldVal.String
		e.NewValue = newVal.String
		e.At = parseTimestamp(at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
