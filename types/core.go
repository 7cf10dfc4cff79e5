// Package types holds the data model shared by the asset store packages:
// field specifications, records, filter clauses, change instructions and
// the error kinds surfaced to callers.
package types

import (
	"strings"
	"time"
)

// System-managed column names present on every asset table.
const (
	ColumnID           = "id"
	ColumnCreatedDate  = "created_date"
	ColumnModifiedDate = "modified_date"
	ColumnCreatedBy    = "created_by"
	ColumnModifiedBy   = "modified_by"
	ColumnIsDeleted    = "is_deleted"
)

// SystemColumns lists the system-managed columns in table order.
var SystemColumns = []string{
	ColumnID,
	ColumnCreatedDate,
	ColumnModifiedDate,
	ColumnCreatedBy,
	ColumnModifiedBy,
	ColumnIsDeleted,
}

// IsSystemColumn reports whether name collides with a system-managed column.
// SQLite identifiers are case-insensitive, so the comparison is too.
func IsSystemColumn(name string) bool {
	for _, c := range SystemColumns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// TimestampLayout is the layout used for created_date and modified_date.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the ISO date layout used for date fields.
const DateLayout = "2006-01-02"

// Record is one row of the asset table.
type Record struct {
	ID           int64
	CreatedDate  time.Time
	ModifiedDate time.Time
	CreatedBy    string
	ModifiedBy   string
	IsDeleted    bool

	// Values holds template-defined attributes. A NULL column is absent
	// from the map.
	Values map[string]string
}

// Get returns the value for field and whether it was set.
func (r Record) Get(field string) (string, bool) {
	v, ok := r.Values[field]
	return v, ok
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID       int64
	RecordID int64
	Action   string
	Field    string
	OldValue string
	NewValue string
	Actor    string
	At       time.Time
	BatchID  string
}

// Audit actions.
const (
	AuditInsert  = "insert"
	AuditUpdate  = "update"
	AuditDelete  = "delete"
	AuditRestore = "restore"
)
