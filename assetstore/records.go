package assetstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/arthur-debert/assetstore/internal/validation"
	"github.com/arthur-debert/assetstore/types"
)

// AddRecord inserts a record and returns its identity. Every required field
// present in the table must be non-empty, and unique fields must not repeat
// a value held by another non-deleted record.
func (s *Store) AddRecord(ctx context.Context, values map[string]string) (int64, error) {
	snap := s.registry.Snapshot()
	var id int64

	err := s.writeTx(ctx, "add_record", func(tx *sql.Tx) error {
		cs, err := s.loadColumns(ctx, tx)
		if err != nil {
			return err
		}

		resolved := make(map[string]string, len(values))
		for field, v := range values {
			if types.IsSystemColumn(field) {
				return &types.UnknownFieldError{Field: field}
			}
			col, ok := cs.resolve(strings.TrimSpace(field))
			if !ok {
				return &types.UnknownFieldError{Field: field}
			}
			if _, dup := resolved[col]; dup {
				return &types.InvalidValueError{Field: col, Value: v, Reason: "field given more than once"}
			}
			v = strings.TrimSpace(v)
			if snap.Kind(col) == types.Date && v != "" {
				iso, err := validation.NormalizeDate(v)
				if err != nil {
					return &types.InvalidValueError{Field: col, Value: v, Reason: err.Error()}
				}
				v = iso
			}
			resolved[col] = v
		}

		var problems types.ValidationErrors
		for _, col := range cs.names {
			required := snap.Classify(col).Required || s.templateRequired(col)
			if required && strings.TrimSpace(resolved[col]) == "" {
				problems = append(problems, &types.RequiredFieldError{Field: col})
			}
		}
		if len(problems) == 1 {
			return problems[0]
		}
		if len(problems) > 1 {
			return problems
		}

		for _, col := range cs.names {
			v := resolved[col]
			if !snap.Classify(col).Unique || strings.TrimSpace(v) == "" {
				continue
			}
			holder, err := s.findHolder(ctx, tx, col, v, nil)
			if err != nil {
				return err
			}
			if holder != 0 {
				return &types.UniquenessConflictError{Field: col, Value: v, RecordID: holder}
			}
		}

		now := s.timestamp()
		columns := []string{types.ColumnCreatedDate, types.ColumnModifiedDate, types.ColumnCreatedBy, types.ColumnModifiedBy, types.ColumnIsDeleted}
		args := []interface{}{now, now, s.actor, s.actor, 0}
		fieldCols := make([]string, 0, len(resolved))
		for col := range resolved {
			fieldCols = append(fieldCols, col)
		}
		sort.Strings(fieldCols)
		for _, col := range fieldCols {
			columns = append(columns, col)
			args = append(args, nullIfEmpty(resolved[col]))
		}

		query, qargs, err := s.sqlBuilder.buildInsert(s.table, columns, args)
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}
		s.logQuery("add_record", query, qargs)
		res, err := tx.ExecContext(ctx, query, qargs...)
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read new record id: %w", err)
		}

		return s.insertAudit(ctx, tx, []types.AuditEntry{{RecordID: id, Action: types.AuditInsert}})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetRecord returns a record by identity, including soft-deleted ones.
func (s *Store) GetRecord(ctx context.Context, id int64) (types.Record, error) {
	cs, err := s.loadColumns(ctx, s.db)
	if err != nil {
		return types.Record{}, err
	}
	query, args, err := s.sqlBuilder.buildSelect(s.table, recordColumns(cs),
		squirrel.Eq{quoteIdent(types.ColumnID): id}, nil, 0, 0)
	if err != nil {
		return types.Record{}, fmt.Errorf("failed to build query: %w", err)
	}
	s.logQuery("get_record", query, args)

	records, err := s.queryRecords(ctx, s.db, cs, query, args)
	if err != nil {
		return types.Record{}, err
	}
	if len(records) == 0 {
		return types.Record{}, &types.NotFoundError{Kind: "record", Name: formatID(id)}
	}
	return records[0], nil
}

// UpdateRecord applies changes to one non-deleted record.
func (s *Store) UpdateRecord(ctx context.Context, id int64, changes []types.ChangeInstruction) error {
	n, err := s.ApplyBulkChange(ctx, ByID(id), changes)
	if err != nil {
		return err
	}
	if n == 0 {
		return &types.NotFoundError{Kind: "record", Name: formatID(id)}
	}
	return nil
}

// DeleteRecord soft-deletes a record. Its data stays in the table.
func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	return s.setDeleted(ctx, id, true)
}

// RestoreRecord undoes a soft delete. It fails with UniquenessConflictError
// when another record has since taken one of its unique values.
func (s *Store) RestoreRecord(ctx context.Context, id int64) error {
	return s.setDeleted(ctx, id, false)
}

func (s *Store) setDeleted(ctx context.Context, id int64, deleted bool) error {
	op, action, from, to := "delete_record", types.AuditDelete, 0, 1
	if !deleted {
		op, action, from, to = "restore_record", types.AuditRestore, 1, 0
	}
	snap := s.registry.Snapshot()

	return s.writeTx(ctx, op, func(tx *sql.Tx) error {
		if !deleted {
			cs, err := s.loadColumns(ctx, tx)
			if err != nil {
				return err
			}
			for _, col := range cs.names {
				if !snap.Classify(col).Unique {
					continue
				}
				var v sql.NullString
				q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", quoteIdent(col), quoteIdent(s.table), quoteIdent(types.ColumnID))
				if err := tx.QueryRowContext(ctx, q, id).Scan(&v); err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						return &types.NotFoundError{Kind: "record", Name: formatID(id)}
					}
					return fmt.Errorf("failed to read record %d: %w", id, err)
				}
				if strings.TrimSpace(v.String) == "" {
					continue
				}
				holder, err := s.findHolder(ctx, tx, col, v.String, map[int64]bool{id: true})
				if err != nil {
					return err
				}
				if holder != 0 {
					return &types.UniquenessConflictError{Field: col, Value: v.String, RecordID: holder}
				}
			}
		}

		query, args, err := s.sqlBuilder.buildUpdateWhere(s.table,
			[]string{types.ColumnIsDeleted, types.ColumnModifiedDate, types.ColumnModifiedBy},
			[]interface{}{to, s.timestamp(), s.actor},
			squirrel.Eq{quoteIdent(types.ColumnID): id, quoteIdent(types.ColumnIsDeleted): from})
		if err != nil {
			return fmt.Errorf("failed to build update: %w", err)
		}
		s.logQuery(op, query, args)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update record %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return &types.NotFoundError{Kind: "record", Name: formatID(id)}
		}
		return s.insertAudit(ctx, tx, []types.AuditEntry{{RecordID: id, Action: action}})
	})
}
