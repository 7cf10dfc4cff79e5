package assetstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/arthur-debert/assetstore/types"
)

// namedKind is one of the small keyed tables holding named entities.
type namedKind struct {
	table string
	label string
}

var (
	savedSearchKind = namedKind{table: "saved_searches", label: "saved search"}
	presetKind      = namedKind{table: "presets", label: "preset"}
)

type savedSearchPayload struct {
	Clauses []types.FilterClause `json:"clauses"`
	Mode    types.LogicMode      `json:"mode"`
}

type presetPayload struct {
	Changes []types.ChangeInstruction `json:"changes"`
}

// CreateSavedSearch stores a named filter. The clauses are validated
// against the current schema first.
func (s *Store) CreateSavedSearch(ctx context.Context, ss types.SavedSearch) error {
	mode, err := types.ParseLogicMode(string(ss.Mode))
	if err != nil {
		return &types.InvalidFilterError{Reason: err.Error()}
	}
	if _, err := s.BuildFilter(ctx, ss.Clauses, mode); err != nil {
		return err
	}
	payload, err := json.Marshal(savedSearchPayload{Clauses: ss.Clauses, Mode: mode})
	if err != nil {
		return fmt.Errorf("failed to encode saved search: %w", err)
	}
	return s.createNamed(ctx, savedSearchKind, ss.Name, payload)
}

// GetSavedSearch loads a saved search by name.
func (s *Store) GetSavedSearch(ctx context.Context, name string) (types.SavedSearch, error) {
	stored, payload, err := s.getNamed(ctx, savedSearchKind, name)
	if err != nil {
		return types.SavedSearch{}, err
	}
	return decodeSavedSearch(stored, payload)
}

// ListSavedSearches returns every saved search ordered by name.
func (s *Store) ListSavedSearches(ctx context.Context) ([]types.SavedSearch, error) {
	rows, err := s.listNamed(ctx, savedSearchKind)
	if err != nil {
		return nil, err
	}
	out := make([]types.SavedSearch, 0, len(rows))
	for _, r := range rows {
		ss, err := decodeSavedSearch(r.name, r.payload)
		if err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	return out, nil
}

// RenameSavedSearch renames a saved search.
func (s *Store) RenameSavedSearch(ctx context.Context, oldName, newName string) error {
	return s.renameNamed(ctx, savedSearchKind, oldName, newName)
}

// DeleteSavedSearch removes a saved search.
func (s *Store) DeleteSavedSearch(ctx context.Context, name string) error {
	return s.deleteNamed(ctx, savedSearchKind, name)
}

// RunSavedSearch executes a saved search.
func (s *Store) RunSavedSearch(ctx context.Context, name string, opts QueryOptions) (QueryResult, error) {
	ss, err := s.GetSavedSearch(ctx, name)
	if err != nil {
		return QueryResult{}, err
	}
	return s.Search(ctx, ss.Clauses, ss.Mode, opts)
}

func decodeSavedSearch(name string, payload []byte) (types.SavedSearch, error) {
	var p savedSearchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return types.SavedSearch{}, fmt.Errorf("corrupt saved search %q: %w", name, err)
	}
	return types.SavedSearch{Name: name, Clauses: p.Clauses, Mode: p.Mode}, nil
}

// CreatePreset stores a named set of change instructions. Every field must
// exist in the current schema.
func (s *Store) CreatePreset(ctx context.Context, p types.Preset) error {
	if len(p.Changes) == 0 {
		return fmt.Errorf("preset %q has no changes", p.Name)
	}
	cs, err := s.loadColumns(ctx, s.db)
	if err != nil {
		return err
	}
	changes := make([]types.ChangeInstruction, len(p.Changes))
	for i, ch := range p.Changes {
		if types.IsSystemColumn(ch.Field) || !cs.has(strings.TrimSpace(ch.Field)) {
			return &types.UnknownFieldError{Field: ch.Field}
		}
		op, err := types.ParseChangeOp(string(ch.Op))
		if err != nil {
			return &types.InvalidValueError{Field: ch.Field, Value: ch.Value, Reason: err.Error()}
		}
		ch.Op = op
		changes[i] = ch
	}

	payload, err := json.Marshal(presetPayload{Changes: changes})
	if err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}
	return s.createNamed(ctx, presetKind, p.Name, payload)
}

// GetPreset loads a preset by name.
func (s *Store) GetPreset(ctx context.Context, name string) (types.Preset, error) {
	stored, payload, err := s.getNamed(ctx, presetKind, name)
	if err != nil {
		return types.Preset{}, err
	}
	return decodePreset(stored, payload)
}

// ListPresets returns every preset ordered by name.
func (s *Store) ListPresets(ctx context.Context) ([]types.Preset, error) {
	rows, err := s.listNamed(ctx, presetKind)
	if err != nil {
		return nil, err
	}
	out := make([]types.Preset, 0, len(rows))
	for _, r := range rows {
		p, err := decodePreset(r.name, r.payload)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// RenamePreset renames a preset.
func (s *Store) RenamePreset(ctx context.Context, oldName, newName string) error {
	return s.renameNamed(ctx, presetKind, oldName, newName)
}

// DeletePreset removes a preset.
func (s *Store) DeletePreset(ctx context.Context, name string) error {
	return s.deleteNamed(ctx, presetKind, name)
}

func decodePreset(name string, payload []byte) (types.Preset, error) {
	var p presetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return types.Preset{}, fmt.Errorf("corrupt preset %q: %w", name, err)
	}
	return types.Preset{Name: name, Changes: p.Changes}, nil
}

type namedRow struct {
	name    string
	payload []byte
}

func normalizeEntityName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	return name, nil
}

// lookupNamed returns the row id for name, or zero. Names compare
// case-insensitively.
func (s *Store) lookupNamed(ctx context.Context, q queryer, k namedKind, name string) (int64, error) {
	query, args, err := s.sqlBuilder.sq.Select("id").From(k.table).
		Where(squirrel.Eq{"table_name": s.table, "name": name}).ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	err = q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up %s %q: %w", k.label, name, err)
	}
	return id, nil
}

func (s *Store) createNamed(ctx context.Context, k namedKind, name string, payload []byte) error {
	name, err := normalizeEntityName(name)
	if err != nil {
		return err
	}
	return s.writeTx(ctx, "create_"+k.table, func(tx *sql.Tx) error {
		existing, err := s.lookupNamed(ctx, tx, k, name)
		if err != nil {
			return err
		}
		if existing != 0 {
			return &types.DuplicateNameError{Kind: k.label, Name: name}
		}
		now := s.timestamp()
		query, args, err := s.sqlBuilder.sq.Insert(k.table).
			Columns("table_name", "name", "payload", "created_date", "modified_date").
			Values(s.table, name, string(payload), now, now).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}
		s.logQuery("create_"+k.table, query, args)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to create %s %q: %w", k.label, name, err)
		}
		return nil
	})
}

func (s *Store) renameNamed(ctx context.Context, k namedKind, oldName, newName string) error {
	oldName = strings.TrimSpace(oldName)
	newName, err := normalizeEntityName(newName)
	if err != nil {
		return err
	}
	return s.writeTx(ctx, "rename_"+k.table, func(tx *sql.Tx) error {
		id, err := s.lookupNamed(ctx, tx, k, oldName)
		if err != nil {
			return err
		}
		if id == 0 {
			return &types.NotFoundError{Kind: k.label, Name: oldName}
		}
		other, err := s.lookupNamed(ctx, tx, k, newName)
		if err != nil {
			return err
		}
		if other != 0 && other != id {
			return &types.DuplicateNameError{Kind: k.label, Name: newName}
		}
		query, args, err := s.sqlBuilder.sq.Update(k.table).
			Set("name", newName).
			Set("modified_date", s.timestamp()).
			Where(squirrel.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build rename: %w", err)
		}
		s.logQuery("rename_"+k.table, query, args)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to rename %s %q: %w", k.label, oldName, err)
		}
		return nil
	})
}

func (s *Store) deleteNamed(ctx context.Context, k namedKind, name string) error {
	return s.writeTx(ctx, "delete_"+k.table, func(tx *sql.Tx) error {
		query, args, err := s.sqlBuilder.sq.Delete(k.table).
			Where(squirrel.Eq{"table_name": s.table, "name": strings.TrimSpace(name)}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete: %w", err)
		}
		s.logQuery("delete_"+k.table, query, args)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete %s %q: %w", k.label, name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return &types.NotFoundError{Kind: k.label, Name: name}
		}
		return nil
	})
}

func (s *Store) getNamed(ctx context.Context, k namedKind, name string) (string, []byte, error) {
	query, args, err := s.sqlBuilder.sq.Select("name", "payload").From(k.table).
		Where(squirrel.Eq{"table_name": s.table, "name": strings.TrimSpace(name)}).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build query: %w", err)
	}
	var stored, payload string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&stored, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, &types.NotFoundError{Kind: k.label, Name: name}
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load %s %q: %w", k.label, name, err)
	}
	return stored, []byte(payload), nil
}

func (s *Store) listNamed(ctx context.Context, k namedKind) ([]namedRow, error) {
	query, args, err := s.sqlBuilder.sq.Select("name", "payload").From(k.table).
		Where(squirrel.Eq{"table_name": s.table}).
		OrderBy("name COLLATE NOCASE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", k.label, err)
	}
	defer func() { _ = rows.Close() }()

	var out []namedRow
	for rows.Next() {
		var r namedRow
		var payload string
		if err := rows.Scan(&r.name, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", k.label, err)
		}
		r.payload = []byte(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}
