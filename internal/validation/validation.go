package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/arthur-debert/assetstore/types"
)

// MaxFieldNameLength bounds template field names.
const MaxFieldNameLength = 128

// ValidateFieldName checks a single template field name.
func ValidateFieldName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if len(name) > MaxFieldNameLength {
		return fmt.Errorf("field name longer than %d bytes", MaxFieldNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("field name contains control character %U", r)
		}
	}
	if IsReservedColumnName(name) {
		return fmt.Errorf("'%s' is a reserved column name", name)
	}
	return nil
}

// ValidateFieldNames checks every name and rejects duplicates. Names that
// differ only by case are duplicates because the store's identifiers are
// case-insensitive.
func ValidateFieldNames(names []string) error {
	seen := make(map[string]string)
	for _, name := range names {
		if err := ValidateFieldName(name); err != nil {
			return err
		}
		key := strings.ToLower(name)
		if prev, exists := seen[key]; exists {
			return fmt.Errorf("duplicate field name: %s (also %s)", name, prev)
		}
		seen[key] = name
	}
	return nil
}

// IsReservedColumnName checks if a column name is reserved by the system
func IsReservedColumnName(name string) bool {
	if types.IsSystemColumn(name) {
		return true
	}
	// SQLite aliases for the implicit row id
	switch strings.ToLower(name) {
	case "rowid", "_rowid_", "oid":
		return true
	}
	return false
}

var dateLayouts = []string{
	types.DateLayout,
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
	types.TimestampLayout,
}

// ParseDate accepts the date formats users enter and returns the date at
// midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (expected YYYY-MM-DD or MM/DD/YYYY)", s)
}

// NormalizeDate returns s rewritten as an ISO date.
func NormalizeDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(types.DateLayout), nil
}
