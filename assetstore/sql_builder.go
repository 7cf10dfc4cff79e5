package assetstore

import (
	"fmt"

	"github.com/Masterminds/squirrel"
)

// sqlBuilder wraps squirrel to provide safe SQL generation. Identifiers are
// quoted by the callers; values always travel as placeholders.
type sqlBuilder struct {
	sq squirrel.StatementBuilderType
}

// newSQLBuilder creates a new SQL builder
func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// buildSelect builds a SELECT of columns from table filtered by where.
// limit 0 means no limit.
func (b *sqlBuilder) buildSelect(table string, columns []string, where squirrel.Sqlizer, orderBy []string, limit, offset uint64) (string, []interface{}, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("no columns specified for select")
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}

	q := b.sq.Select(quoted...).From(quoteIdent(table))
	if where != nil {
		q = q.Where(where)
	}
	if len(orderBy) > 0 {
		q = q.OrderBy(orderBy...)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	return q.ToSql()
}

// buildSelectCount builds a safe SELECT COUNT query
func (b *sqlBuilder) buildSelectCount(table string, where squirrel.Sqlizer) (string, []interface{}, error) {
	q := b.sq.Select("COUNT(*)").From(quoteIdent(table))
	if where != nil {
		q = q.Where(where)
	}
	return q.ToSql()
}

// buildInsert builds a safe INSERT query
func (b *sqlBuilder) buildInsert(table string, columns []string, values []interface{}) (string, []interface{}, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("no columns specified for insert")
	}
	if len(columns) != len(values) {
		return "", nil, fmt.Errorf("column count (%d) does not match value count (%d)", len(columns), len(values))
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return b.sq.Insert(quoteIdent(table)).Columns(quoted...).Values(values...).ToSql()
}

// buildUpdateWhere builds a safe UPDATE query with a custom where clause
func (b *sqlBuilder) buildUpdateWhere(table string, setColumns []string, setValues []interface{}, where squirrel.Sqlizer) (string, []interface{}, error) {
	if len(setColumns) == 0 {
		return "", nil, fmt.Errorf("no columns specified for update")
	}
	if len(setColumns) != len(setValues) {
		return "", nil, fmt.Errorf("column count (%d) does not match value count (%d)", len(setColumns), len(setValues))
	}
	if where == nil {
		return "", nil, fmt.Errorf("no where clause specified for update")
	}

	update := b.sq.Update(quoteIdent(table))
	for i, col := range setColumns {
		update = update.Set(quoteIdent(col), setValues[i])
	}
	return update.Where(where).ToSql()
}
