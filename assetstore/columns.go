package assetstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/arthur-debert/assetstore/types"
)

// columnSet is the set of template columns physically present in the asset
// table, in physical order.
type columnSet struct {
	names []string
	exact map[string]string
	fold  map[string]string
}

func newColumnSet(names []string) *columnSet {
	cs := &columnSet{
		names: names,
		exact: make(map[string]string, len(names)),
		fold:  make(map[string]string, len(names)),
	}
	for _, n := range names {
		cs.exact[n] = n
		cs.fold[strings.ToLower(n)] = n
	}
	return cs
}

// resolve maps a field name to its physical column. SQLite identifiers are
// case-insensitive, so "model" resolves to a "Model" column when no exact
// match exists.
func (cs *columnSet) resolve(field string) (string, bool) {
	if c, ok := cs.exact[field]; ok {
		return c, true
	}
	c, ok := cs.fold[strings.ToLower(field)]
	return c, ok
}

func (cs *columnSet) has(field string) bool {
	_, ok := cs.resolve(field)
	return ok
}

// loadColumns reads the template columns of the asset table.
func (s *Store) loadColumns(ctx context.Context, q queryer) (*columnSet, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", s.table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		if types.IsSystemColumn(name) {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return newColumnSet(names), nil
}

// Columns returns the template columns present in the asset table, in
// physical order.
func (s *Store) Columns(ctx context.Context) ([]string, error) {
	cs, err := s.loadColumns(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), cs.names...), nil
}

// Fields returns the field specs for forms and exports. When a template has
// been synchronized its order and required markers are used; otherwise specs
// are derived from the physical columns. Excluded fields are included; use
// Registry().Visible to hide them.
func (s *Store) Fields(ctx context.Context) ([]types.FieldSpec, error) {
	cs, err := s.loadColumns(ctx, s.db)
	if err != nil {
		return nil, err
	}
	snap := s.registry.Snapshot()

	if tmpl := s.template.Load(); tmpl != nil {
		specs := make([]types.FieldSpec, 0, len(*tmpl))
		for _, spec := range *tmpl {
			if col, ok := cs.resolve(spec.Name); ok {
				spec.Name = col
				spec.Order = len(specs)
				specs = append(specs, spec)
			}
		}
		return snap.Annotate(specs), nil
	}

	specs := make([]types.FieldSpec, len(cs.names))
	for i, n := range cs.names {
		specs[i] = types.FieldSpec{Name: n, Order: i}
	}
	return snap.Annotate(specs), nil
}

// templateRequired reports whether the last synchronized template marks
// field required.
func (s *Store) templateRequired(field string) bool {
	tmpl := s.template.Load()
	if tmpl == nil {
		return false
	}
	for _, spec := range *tmpl {
		if strings.EqualFold(spec.Name, field) {
			return spec.Required
		}
	}
	return false
}
