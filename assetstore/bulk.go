package assetstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/arthur-debert/assetstore/assetstore/fields"
	"github.com/arthur-debert/assetstore/internal/metrics"
	"github.com/arthur-debert/assetstore/internal/validation"
	"github.com/arthur-debert/assetstore/types"
)

// resolvedChange is a change instruction bound to a physical column.
type resolvedChange struct {
	column   string
	op       types.ChangeOp
	value    string
	kind     types.FieldKind
	required bool
	unique   bool
}

// target is one matched record and the current values of changed columns.
type target struct {
	id      int64
	current map[string]sql.NullString
	next    map[string]string
}

// ApplyBulkChange applies changes to every non-deleted record matching pred
// in one transaction and returns the number of records mutated. No matches
// is not an error. A uniqueness or required-field violation on any record
// aborts the whole change and nothing is written.
func (s *Store) ApplyBulkChange(ctx context.Context, pred Predicate, changes []types.ChangeInstruction) (int, error) {
	if len(changes) == 0 {
		return 0, fmt.Errorf("no changes specified")
	}
	if pred.SQL == "" {
		pred = MatchAll()
	}
	snap := s.registry.Snapshot()

	var matched int
	err := s.writeTx(ctx, "bulk_change", func(tx *sql.Tx) error {
		matched = 0

		cs, err := s.loadColumns(ctx, tx)
		if err != nil {
			return err
		}
		plan, err := s.planChanges(cs, snap, changes)
		if err != nil {
			return err
		}

		targets, err := s.selectTargets(ctx, tx, pred, plan)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return nil
		}

		if err := s.computeValues(targets, plan); err != nil {
			return err
		}
		if err := checkRequired(targets, plan); err != nil {
			return err
		}
		if err := s.checkUnique(ctx, tx, targets, plan); err != nil {
			return err
		}
		if err := s.writeTargets(ctx, tx, targets, plan); err != nil {
			return err
		}
		matched = len(targets)
		return nil
	})

	metrics.BulkChange(bulkResult(matched, err), matched)
	if err != nil {
		s.logger.Info("bulk change rejected", "changes", len(changes), "error", err)
		return 0, err
	}
	s.logger.Info("bulk change applied", "changes", len(changes), "records", matched)
	return matched, nil
}

// ApplyPreset applies a saved preset's changes to the records pred selects.
func (s *Store) ApplyPreset(ctx context.Context, name string, pred Predicate) (int, error) {
	preset, err := s.GetPreset(ctx, name)
	if err != nil {
		return 0, err
	}
	return s.ApplyBulkChange(ctx, pred, preset.Changes)
}

func bulkResult(matched int, err error) string {
	var (
		unique   *types.UniquenessConflictError
		required *types.RequiredFieldError
		unknown  *types.UnknownFieldError
		invalid  *types.InvalidValueError
	)
	switch {
	case err == nil && matched == 0:
		return "nomatch"
	case err == nil:
		return "ok"
	case errors.As(err, &unique):
		return "unique"
	case errors.As(err, &required):
		return "required"
	case errors.As(err, &unknown), errors.As(err, &invalid):
		return "invalid"
	default:
		return "error"
	}
}

func (s *Store) planChanges(cs *columnSet, snap *fields.Snapshot, changes []types.ChangeInstruction) ([]resolvedChange, error) {
	plan := make([]resolvedChange, 0, len(changes))
	for _, ch := range changes {
		if types.IsSystemColumn(ch.Field) {
			return nil, &types.UnknownFieldError{Field: ch.Field}
		}
		col, ok := cs.resolve(strings.TrimSpace(ch.Field))
		if !ok {
			return nil, &types.UnknownFieldError{Field: ch.Field}
		}
		op, err := types.ParseChangeOp(string(ch.Op))
		if err != nil {
			return nil, &types.InvalidValueError{Field: col, Value: ch.Value, Reason: err.Error()}
		}
		class := snap.Classify(col)
		rc := resolvedChange{
			column:   col,
			op:       op,
			value:    ch.Value,
			kind:     class.Kind(),
			required: class.Required || s.templateRequired(col),
			unique:   class.Unique,
		}
		if rc.kind == types.Date && op == types.ChangeAppend {
			return nil, &types.InvalidValueError{Field: col, Value: ch.Value, Reason: "cannot append to a date field"}
		}
		plan = append(plan, rc)
	}
	return plan, nil
}

// planColumns lists each changed column once, in first-change order.
func planColumns(plan []resolvedChange) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, rc := range plan {
		if !seen[rc.column] {
			seen[rc.column] = true
			cols = append(cols, rc.column)
		}
	}
	return cols
}

func (s *Store) selectTargets(ctx context.Context, tx *sql.Tx, pred Predicate, plan []resolvedChange) ([]*target, error) {
	cols := planColumns(plan)
	query, args, err := s.sqlBuilder.buildSelect(s.table,
		append([]string{types.ColumnID}, cols...),
		pred.live(), []string{quoteIdent(types.ColumnID) + " ASC"}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build target query: %w", err)
	}
	s.logQuery("bulk_select", query, args)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select targets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var targets []*target
	for rows.Next() {
		t := &target{current: make(map[string]sql.NullString, len(cols))}
		values := make([]sql.NullString, len(cols))
		dest := []interface{}{&t.id}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		for i, c := range cols {
			t.current[c] = values[i]
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating targets: %w", err)
	}
	return targets, nil
}

// computeValues fills in each target's new values. Instructions apply in
// order, so two instructions on one field compose.
func (s *Store) computeValues(targets []*target, plan []resolvedChange) error {
	today := s.now().Format(types.DateLayout)
	for _, t := range targets {
		t.next = make(map[string]string, len(t.current))
		for col, v := range t.current {
			t.next[col] = v.String
		}
		for _, rc := range plan {
			v, err := applyChange(rc, t.next[rc.column], today)
			if err != nil {
				return err
			}
			t.next[rc.column] = v
		}
	}
	return nil
}

func applyChange(rc resolvedChange, current, today string) (string, error) {
	value := strings.TrimSpace(rc.value)
	if strings.EqualFold(value, types.CurrentDateToken) {
		value = today
	}

	switch rc.op {
	case types.ChangeClear:
		return "", nil
	case types.ChangeAppend:
		current = strings.TrimSpace(current)
		if value == "" {
			return current, nil
		}
		if current == "" {
			return value, nil
		}
		sep := " "
		if strings.Contains(current, "\n") {
			sep = "\n"
		}
		return current + sep + value, nil
	}

	if rc.kind == types.Date && value != "" {
		iso, err := validation.NormalizeDate(value)
		if err != nil {
			return "", &types.InvalidValueError{Field: rc.column, Value: value, Reason: err.Error()}
		}
		return iso, nil
	}
	return value, nil
}

func checkRequired(targets []*target, plan []resolvedChange) error {
	for _, rc := range plan {
		if !rc.required {
			continue
		}
		for _, t := range targets {
			if strings.TrimSpace(t.next[rc.column]) == "" {
				return &types.RequiredFieldError{Field: rc.column}
			}
		}
	}
	return nil
}

// checkUnique rejects a change when two matched records would end with the
// same value in a unique field, or when a record outside the matched set
// already holds a value being written. Soft-deleted records and empty values
// do not take part.
func (s *Store) checkUnique(ctx context.Context, tx *sql.Tx, targets []*target, plan []resolvedChange) error {
	matchedIDs := make(map[int64]bool, len(targets))
	for _, t := range targets {
		matchedIDs[t.id] = true
	}

	checked := make(map[string]bool)
	for _, rc := range plan {
		if !rc.unique || checked[rc.column] {
			continue
		}
		checked[rc.column] = true

		var values []string
		seen := make(map[string]bool)
		for _, t := range targets {
			v := strings.TrimSpace(t.next[rc.column])
			if v == "" {
				continue
			}
			if seen[v] {
				return &types.UniquenessConflictError{Field: rc.column, Value: v}
			}
			seen[v] = true
			values = append(values, v)
		}

		for _, v := range values {
			holder, err := s.findHolder(ctx, tx, rc.column, v, matchedIDs)
			if err != nil {
				return err
			}
			if holder != 0 {
				return &types.UniquenessConflictError{Field: rc.column, Value: v, RecordID: holder}
			}
		}
	}
	return nil
}

// findHolder returns a non-deleted record outside exclude whose column
// equals value, or zero. Surrounding whitespace is ignored on both sides.
func (s *Store) findHolder(ctx context.Context, q queryer, column, value string, exclude map[int64]bool) (int64, error) {
	ident := quoteIdent(column)
	query, args, err := s.sqlBuilder.buildSelect(s.table, []string{types.ColumnID},
		squirrel.And{notDeleted, squirrel.Expr("TRIM("+ident+") = ?", strings.TrimSpace(value))},
		[]string{quoteIdent(types.ColumnID) + " ASC"}, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to build uniqueness query: %w", err)
	}
	s.logQuery("unique_check", query, args)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to check uniqueness of %q: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to scan id: %w", err)
		}
		if !exclude[id] {
			return id, nil
		}
	}
	return 0, rows.Err()
}

func (s *Store) writeTargets(ctx context.Context, tx *sql.Tx, targets []*target, plan []resolvedChange) error {
	cols := planColumns(plan)
	now := s.timestamp()
	batch := uuid.NewString()
	var audit []types.AuditEntry

	setCols := append(append([]string(nil), cols...), types.ColumnModifiedDate, types.ColumnModifiedBy)
	for _, t := range targets {
		values := make([]interface{}, 0, len(setCols))
		for _, c := range cols {
			values = append(values, nullIfEmpty(t.next[c]))

			old := t.current[c].String
			if old != t.next[c] {
				audit = append(audit, types.AuditEntry{
					RecordID: t.id,
					Action:   types.AuditUpdate,
					Field:    c,
					OldValue: old,
					NewValue: t.next[c],
					BatchID:  batch,
				})
			}
		}
		values = append(values, now, s.actor)

		query, args, err := s.sqlBuilder.buildUpdateWhere(s.table, setCols, values,
			squirrel.Eq{quoteIdent(types.ColumnID): t.id})
		if err != nil {
			return fmt.Errorf("failed to build update: %w", err)
		}
		s.logQuery("bulk_update", query, args)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update record %d: %w", t.id, err)
		}
	}
	return s.insertAudit(ctx, tx, audit)
}

func nullIfEmpty(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
