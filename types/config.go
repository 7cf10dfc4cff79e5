package types

import (
	"fmt"
	"strings"
	"time"
)

// FieldKind classifies how a field's values are entered and compared.
type FieldKind int

const (
	// FreeText fields hold arbitrary text.
	FreeText FieldKind = iota
	// Dropdown fields are picked from a list of known values.
	Dropdown
	// Date fields hold ISO dates and support range operators.
	Date
)

// String returns the string representation of the FieldKind
func (k FieldKind) String() string {
	switch k {
	case FreeText:
		return "free-text"
	case Dropdown:
		return "dropdown"
	case Date:
		return "date"
	default:
		return "unknown"
	}
}

// ParseFieldKind converts a kind name back into a FieldKind.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free-text", "freetext", "text", "":
		return FreeText, nil
	case "dropdown":
		return Dropdown, nil
	case "date":
		return Date, nil
	}
	return FreeText, fmt.Errorf("unknown field kind %q", s)
}

// FieldSpec describes one template column.
type FieldSpec struct {
	Name     string
	Required bool
	Order    int
	Kind     FieldKind
}

// FieldNames returns the names of specs in order.
func FieldNames(specs []FieldSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

// SchemaVersion is the persisted marker of which template fields have been
// materialized as columns.
type SchemaVersion struct {
	Table   string
	Version int
	// Columns is the full set of template columns present after the
	// synchronization, in physical order.
	Columns []string
	// Added lists the columns created by the synchronization that produced
	// this version.
	Added    []string
	SyncedAt time.Time
}
