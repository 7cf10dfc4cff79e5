// Package export writes asset records as delimited text or markdown tables.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Format defines how a table is written.
type Format struct {
	// Name is the format identifier (lowercase alphanumeric, dashes, underscores)
	Name string

	// Extension is the file extension including the dot (e.g., ".csv")
	Extension string

	// Write serializes the table to w
	Write func(w io.Writer, t *Table) error
}

// registry holds all available formats
var registry = make(map[string]*Format)

// Register adds a new format to the registry
func Register(format *Format) error {
	if !isValidFormatName(format.Name) {
		return fmt.Errorf("invalid format name %q: must be lowercase alphanumeric with dashes and underscores only", format.Name)
	}
	if format.Write == nil {
		return fmt.Errorf("format %q has no writer", format.Name)
	}

	if !strings.HasPrefix(format.Extension, ".") {
		format.Extension = "." + format.Extension
	}

	if _, exists := registry[format.Name]; exists {
		return fmt.Errorf("format %q already registered", format.Name)
	}

	registry[format.Name] = format
	return nil
}

// Get returns a format by name
func Get(name string) (*Format, error) {
	format, exists := registry[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("unknown export format %q (available: %s)", name, strings.Join(List(), ", "))
	}
	return format, nil
}

// ForPath picks a format from a file extension, falling back to CSV.
func ForPath(path string) *Format {
	lower := strings.ToLower(path)
	for _, name := range List() {
		if strings.HasSuffix(lower, registry[name].Extension) {
			return registry[name]
		}
	}
	if strings.HasSuffix(lower, ".tab") {
		return TSV
	}
	return CSV
}

// List returns all registered format names, sorted
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isValidFormatName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

func mustRegister(f *Format) {
	if err := Register(f); err != nil {
		panic(fmt.Sprintf("failed to register %s format: %v", f.Name, err))
	}
}
