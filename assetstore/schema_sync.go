package assetstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/assetstore/internal/metrics"
	"github.com/arthur-debert/assetstore/internal/validation"
	"github.com/arthur-debert/assetstore/types"
)

// TemplateDiff compares a template with the physical table.
type TemplateDiff struct {
	// ToAdd are template fields without a column, in template order.
	ToAdd []string
	// Retained are columns no longer in the template. They keep their data
	// and are never dropped.
	Retained []string
}

// InSync reports whether every template field has a column.
func (d TemplateDiff) InSync() bool { return len(d.ToAdd) == 0 }

// Synchronize adds a nullable text column for every field in specs that the
// asset table lacks, in template order, inside one transaction. Columns are
// never removed. When nothing is missing and a version marker exists the call
// performs no writes.
func (s *Store) Synchronize(ctx context.Context, specs []types.FieldSpec) (types.SchemaVersion, error) {
	if err := validation.ValidateFieldNames(types.FieldNames(specs)); err != nil {
		return types.SchemaVersion{}, &types.TemplateFormatError{Reason: err.Error()}
	}

	var version types.SchemaVersion
	changed := false

	err := s.writeTx(ctx, "synchronize", func(tx *sql.Tx) error {
		changed = false

		cs, err := s.loadColumns(ctx, tx)
		if err != nil {
			return &types.SchemaMigrationError{Table: s.table, WrappedError: err}
		}
		toAdd := missingColumns(cs, specs)

		current, found, err := s.readVersion(ctx, tx)
		if err != nil {
			return &types.SchemaMigrationError{Table: s.table, WrappedError: err}
		}
		if len(toAdd) == 0 && found {
			current.Columns = append([]string(nil), cs.names...)
			version = current
			return nil
		}

		builder := newSchemaBuilder(s.table)
		for _, name := range toAdd {
			if s.beforeAddColumn != nil {
				if err := s.beforeAddColumn(name); err != nil {
					return &types.SchemaMigrationError{Table: s.table, Column: name, WrappedError: err}
				}
			}
			ddl := builder.generateAddColumn(name)
			s.logQuery("synchronize", ddl, nil)
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return &types.SchemaMigrationError{Table: s.table, Column: name, WrappedError: err}
			}
		}

		next := types.SchemaVersion{
			Table:    s.table,
			Version:  current.Version + 1,
			Columns:  append(append([]string(nil), cs.names...), toAdd...),
			Added:    toAdd,
			SyncedAt: s.now().UTC().Truncate(time.Second),
		}
		if err := s.writeVersion(ctx, tx, next); err != nil {
			return &types.SchemaMigrationError{Table: s.table, WrappedError: err}
		}
		version = next
		changed = true
		return nil
	})
	if err != nil {
		metrics.SchemaSync("error")
		var sme *types.SchemaMigrationError
		var sle *types.StoreLockedError
		if !errors.As(err, &sme) && !errors.As(err, &sle) {
			err = &types.SchemaMigrationError{Table: s.table, WrappedError: err}
		}
		s.logger.Error("schema synchronization failed", "error", err)
		return types.SchemaVersion{}, err
	}

	annotated := s.registry.Snapshot().Annotate(specs)
	s.template.Store(&annotated)

	if changed {
		metrics.SchemaSync("changed")
		metrics.ColumnsAdded(s.table, len(version.Added))
		s.logger.Info("schema synchronized",
			"version", version.Version,
			"added", version.Added)
	} else {
		metrics.SchemaSync("unchanged")
	}
	return version, nil
}

// missingColumns returns the field names with no column, in template order.
func missingColumns(cs *columnSet, specs []types.FieldSpec) []string {
	var toAdd []string
	for _, spec := range specs {
		if !cs.has(spec.Name) {
			toAdd = append(toAdd, spec.Name)
		}
	}
	return toAdd
}

// CompareTemplate reports how specs differ from the physical table without
// changing anything.
func (s *Store) CompareTemplate(ctx context.Context, specs []types.FieldSpec) (TemplateDiff, error) {
	var diff TemplateDiff
	err := s.locks.execute(readOperation, func() error {
		cs, err := s.loadColumns(ctx, s.db)
		if err != nil {
			return err
		}
		diff.ToAdd = missingColumns(cs, specs)

		inTemplate := make(map[string]bool, len(specs))
		for _, spec := range specs {
			inTemplate[strings.ToLower(spec.Name)] = true
		}
		for _, col := range cs.names {
			if !inTemplate[strings.ToLower(col)] {
				diff.Retained = append(diff.Retained, col)
			}
		}
		return nil
	})
	return diff, err
}

// SchemaVersion returns the persisted version marker. A table that has never
// been synchronized reports version 0.
func (s *Store) SchemaVersion(ctx context.Context) (types.SchemaVersion, error) {
	v, _, err := s.readVersion(ctx, s.db)
	return v, err
}

func (s *Store) readVersion(ctx context.Context, q queryer) (types.SchemaVersion, bool, error) {
	v := types.SchemaVersion{Table: s.table}
	var columns, added, syncedAt string
	err := q.QueryRowContext(ctx,
		"SELECT version, columns, added, synced_at FROM schema_versions WHERE table_name = ?",
		s.table).Scan(&v.Version, &columns, &added, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	if err := json.Unmarshal([]byte(columns), &v.Columns); err != nil {
		return v, false, fmt.Errorf("corrupt schema version columns: %w", err)
	}
	if err := json.Unmarshal([]byte(added), &v.Added); err != nil {
		return v, false, fmt.Errorf("corrupt schema version added: %w", err)
	}
	if t, err := time.Parse(types.TimestampLayout, syncedAt); err == nil {
		v.SyncedAt = t
	}
	return v, true, nil
}

func (s *Store) writeVersion(ctx context.Context, tx *sql.Tx, v types.SchemaVersion) error {
	columns, err := json.Marshal(v.Columns)
	if err != nil {
		return err
	}
	added, err := json.Marshal(v.Added)
	if err != nil {
		return err
	}
	query, args, err := s.sqlBuilder.sq.Insert("schema_versions").
		Columns("table_name", "version", "columns", "added", "synced_at").
		Values(v.Table, v.Version, string(columns), string(added), v.SyncedAt.Format(types.TimestampLayout)).
		Suffix("ON CONFLICT(table_name) DO UPDATE SET version = excluded.version, columns = excluded.columns, added = excluded.added, synced_at = excluded.synced_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build version upsert: %w", err)
	}
	s.logQuery("synchronize", query, args)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	return nil
}
