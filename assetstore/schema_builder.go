package assetstore

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/assetstore/types"
)

// quoteIdent quotes an identifier for SQLite. Field names come straight from
// user templates, so every column reference goes through here.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// schemaBuilder generates DDL for one asset table.
type schemaBuilder struct {
	table string
}

func newSchemaBuilder(table string) *schemaBuilder {
	return &schemaBuilder{table: table}
}

// generateBaseTable creates the asset table with only system columns.
func (sb *schemaBuilder) generateBaseTable() []string {
	t := quoteIdent(sb.table)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    %s INTEGER PRIMARY KEY AUTOINCREMENT,
    %s TEXT NOT NULL,
    %s TEXT NOT NULL,
    %s TEXT NOT NULL DEFAULT '',
    %s TEXT NOT NULL DEFAULT '',
    %s INTEGER NOT NULL DEFAULT 0
)`, t,
			quoteIdent(types.ColumnID),
			quoteIdent(types.ColumnCreatedDate),
			quoteIdent(types.ColumnModifiedDate),
			quoteIdent(types.ColumnCreatedBy),
			quoteIdent(types.ColumnModifiedBy),
			quoteIdent(types.ColumnIsDeleted)),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
			quoteIdent("idx_"+sb.table+"_is_deleted"), t, quoteIdent(types.ColumnIsDeleted)),
	}
}

// generateAddColumn adds one nullable text column for a template field.
func (sb *schemaBuilder) generateAddColumn(field string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", quoteIdent(sb.table), quoteIdent(field))
}
