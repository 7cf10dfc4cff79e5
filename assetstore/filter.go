package assetstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/arthur-debert/assetstore/assetstore/fields"
	"github.com/arthur-debert/assetstore/internal/validation"
	"github.com/arthur-debert/assetstore/types"
)

// Predicate is a parameterized boolean condition over the asset table. It
// implements squirrel.Sqlizer.
type Predicate struct {
	SQL  string
	Args []interface{}
}

// ToSql implements squirrel.Sqlizer.
func (p Predicate) ToSql() (string, []interface{}, error) {
	return p.SQL, p.Args, nil
}

var notDeleted = squirrel.Expr(quoteIdent(types.ColumnIsDeleted) + " = 0")

// live restricts p to non-deleted records, whatever p itself says about
// deletion.
func (p Predicate) live() squirrel.Sqlizer {
	return squirrel.And{notDeleted, p}
}

// MatchAll selects every non-deleted record.
func MatchAll() Predicate {
	sql, args, _ := notDeleted.ToSql()
	return Predicate{SQL: sql, Args: args}
}

// ByID selects one non-deleted record.
func ByID(id int64) Predicate {
	sql, args, _ := squirrel.And{notDeleted, squirrel.Eq{quoteIdent(types.ColumnID): id}}.ToSql()
	return Predicate{SQL: sql, Args: args}
}

// filterableSystemColumns can appear in filter clauses alongside template
// fields.
var filterableSystemColumns = map[string]types.FieldKind{
	types.ColumnCreatedDate:  types.Date,
	types.ColumnModifiedDate: types.Date,
	types.ColumnCreatedBy:    types.FreeText,
	types.ColumnModifiedBy:   types.FreeText,
}

// FilterBuilder turns filter clauses into a Predicate against a fixed set
// of columns and field metadata.
type FilterBuilder struct {
	columns *columnSet
	snap    *fields.Snapshot
}

// NewFilterBuilder creates a builder for the given template columns.
func NewFilterBuilder(columns []string, snap *fields.Snapshot) *FilterBuilder {
	return &FilterBuilder{columns: newColumnSet(columns), snap: snap}
}

// BuildFilter builds a predicate against the table's current columns and
// the registry's current snapshot.
func (s *Store) BuildFilter(ctx context.Context, clauses []types.FilterClause, mode types.LogicMode) (Predicate, error) {
	cs, err := s.loadColumns(ctx, s.db)
	if err != nil {
		return Predicate{}, err
	}
	b := &FilterBuilder{columns: cs, snap: s.registry.Snapshot()}
	return b.Build(clauses, mode)
}

// Build joins one fragment per clause with mode and ANDs the soft-delete
// exclusion on top. An empty clause list matches every non-deleted record.
func (b *FilterBuilder) Build(clauses []types.FilterClause, mode types.LogicMode) (Predicate, error) {
	mode, err := types.ParseLogicMode(string(mode))
	if err != nil {
		return Predicate{}, &types.InvalidFilterError{Reason: err.Error()}
	}
	if len(clauses) == 0 {
		return MatchAll(), nil
	}

	parts := make([]squirrel.Sqlizer, 0, len(clauses))
	for _, c := range clauses {
		part, err := b.clause(c)
		if err != nil {
			return Predicate{}, err
		}
		parts = append(parts, part)
	}

	var group squirrel.Sqlizer
	if mode == types.Or {
		group = squirrel.Or(parts)
	} else {
		group = squirrel.And(parts)
	}

	sql, args, err := squirrel.And{notDeleted, group}.ToSql()
	if err != nil {
		return Predicate{}, fmt.Errorf("failed to build filter: %w", err)
	}
	return Predicate{SQL: sql, Args: args}, nil
}

// resolve finds the column and kind for a clause field.
func (b *FilterBuilder) resolve(field string) (string, types.FieldKind, bool) {
	for name, kind := range filterableSystemColumns {
		if strings.EqualFold(name, field) {
			return name, kind, true
		}
	}
	col, ok := b.columns.resolve(field)
	if !ok {
		return "", types.FreeText, false
	}
	return col, b.snap.Kind(col), true
}

func (b *FilterBuilder) clause(c types.FilterClause) (squirrel.Sqlizer, error) {
	invalid := func(format string, args ...interface{}) error {
		return &types.InvalidFilterError{Clause: c, Reason: fmt.Sprintf(format, args...)}
	}

	op, err := types.ParseOperator(string(c.Operator))
	if err != nil {
		return nil, invalid("unsupported operator %q", c.Operator)
	}
	col, kind, ok := b.resolve(strings.TrimSpace(c.Field))
	if !ok {
		return nil, invalid("unknown field")
	}
	ident := quoteIdent(col)
	value := strings.TrimSpace(c.Value)

	if op.IsDateOnly() && kind != types.Date {
		return nil, invalid("operator %s requires a date field", op)
	}

	switch op {
	case types.OpIsEmpty:
		return squirrel.Expr(fmt.Sprintf("(%s IS NULL OR TRIM(%s) = '')", ident, ident)), nil
	case types.OpIsNotEmpty:
		return squirrel.Expr(fmt.Sprintf("(%s IS NOT NULL AND TRIM(%s) <> '')", ident, ident)), nil
	}

	if kind == types.Date {
		return dateClause(ident, op, value, invalid)
	}

	switch op {
	case types.OpEquals:
		return squirrel.Expr(fmt.Sprintf("COALESCE(%s, '') = ? COLLATE NOCASE", ident), value), nil
	case types.OpNotEquals:
		return squirrel.Expr(fmt.Sprintf("COALESCE(%s, '') <> ? COLLATE NOCASE", ident), value), nil
	}

	if value == "" {
		return nil, invalid("operator %s requires a value", op)
	}
	switch op {
	case types.OpContains:
		return likeExpr(ident, "%"+escapeLike(value)+"%", false), nil
	case types.OpNotContain:
		return likeExpr(ident, "%"+escapeLike(value)+"%", true), nil
	case types.OpStartsWith:
		return likeExpr(ident, escapeLike(value)+"%", false), nil
	case types.OpEndsWith:
		return likeExpr(ident, "%"+escapeLike(value), false), nil
	}
	return nil, invalid("unsupported operator %q", op)
}

// likeExpr matches ASCII case-insensitively, as SQLite's LIKE does.
func likeExpr(ident, pattern string, negate bool) squirrel.Sqlizer {
	if negate {
		return squirrel.Expr(fmt.Sprintf(`COALESCE(%s, '') NOT LIKE ? ESCAPE '\'`, ident), pattern)
	}
	return squirrel.Expr(fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, ident), pattern)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// dateClause compares the ISO date prefix of a column.
func dateClause(ident string, op types.Operator, value string, invalid func(string, ...interface{}) error) (squirrel.Sqlizer, error) {
	prefix := fmt.Sprintf("substr(%s, 1, 10)", ident)

	if op == types.OpBetween {
		from, to, ok := splitRange(value)
		if !ok {
			return nil, invalid("between needs two dates such as 2024-01-01 - 2024-03-31")
		}
		start, err := validation.NormalizeDate(from)
		if err != nil {
			return nil, invalid("%v", err)
		}
		end, err := validation.NormalizeDate(to)
		if err != nil {
			return nil, invalid("%v", err)
		}
		if start > end {
			start, end = end, start
		}
		return squirrel.Expr(prefix+" BETWEEN ? AND ?", start, end), nil
	}

	if value == "" && op == types.OpEquals {
		return squirrel.Expr(fmt.Sprintf("(%s IS NULL OR TRIM(%s) = '')", ident, ident)), nil
	}
	date, err := validation.NormalizeDate(value)
	if err != nil {
		return nil, invalid("%v", err)
	}

	switch op {
	case types.OpEquals:
		return squirrel.Expr(prefix+" = ?", date), nil
	case types.OpNotEquals:
		return squirrel.Expr(fmt.Sprintf("COALESCE(%s, '') <> ?", prefix), date), nil
	case types.OpBefore:
		return squirrel.Expr(fmt.Sprintf("(%s <> '' AND %s < ?)", ident, prefix), date), nil
	case types.OpAfter:
		return squirrel.Expr(prefix+" > ?", date), nil
	}
	return nil, invalid("operator %s is not supported on date fields", op)
}

// splitRange splits "A - B", "A..B" or "A to B".
func splitRange(v string) (string, string, bool) {
	for _, sep := range []string{" - ", "..", " to "} {
		if a, b, found := strings.Cut(v, sep); found {
			a, b = strings.TrimSpace(a), strings.TrimSpace(b)
			if a != "" && b != "" {
				return a, b, true
			}
		}
	}
	return "", "", false
}
