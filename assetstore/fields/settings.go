package fields

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the field metadata document. Each list is a set of field
// names; order is kept only so the document round-trips cleanly.
type Settings struct {
	DropdownFields []string `yaml:"dropdown_fields" mapstructure:"dropdown_fields"`
	RequiredFields []string `yaml:"required_fields" mapstructure:"required_fields"`
	ExcludedFields []string `yaml:"excluded_fields" mapstructure:"excluded_fields"`
	UniqueFields   []string `yaml:"unique_fields" mapstructure:"unique_fields"`
	DateFields     []string `yaml:"date_fields,omitempty" mapstructure:"date_fields"`
}

// DefaultSettings returns the settings used when no document exists yet.
func DefaultSettings() Settings {
	return Settings{
		DropdownFields: []string{"System Name", "Asset Type", "Manufacturer", "Model", "Status", "Location", "Room"},
		UniqueFields: []string{
			"Serial Number", "IP Address", "MAC Address", "Phone Number",
			"Media Control#", "Tamper Seal", "Network Name",
		},
		DateFields: []string{"Audit Date", "Purchase Date", "Warranty End"},
	}
}

// Normalize strips required-field markers and whitespace from every name
// and drops blanks and duplicates.
func (s Settings) Normalize() Settings {
	return Settings{
		DropdownFields: normalizeNames(s.DropdownFields),
		RequiredFields: normalizeNames(s.RequiredFields),
		ExcludedFields: normalizeNames(s.ExcludedFields),
		UniqueFields:   normalizeNames(s.UniqueFields),
		DateFields:     normalizeNames(s.DateFields),
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	return Settings{
		DropdownFields: append([]string(nil), s.DropdownFields...),
		RequiredFields: append([]string(nil), s.RequiredFields...),
		ExcludedFields: append([]string(nil), s.ExcludedFields...),
		UniqueFields:   append([]string(nil), s.UniqueFields...),
		DateFields:     append([]string(nil), s.DateFields...),
	}
}

func normalizeNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(n), "*"))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ReadFile loads a settings document. A missing file yields DefaultSettings.
func ReadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read field settings: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse field settings %s: %w", path, err)
	}
	return s.Normalize(), nil
}

// WriteFile replaces the settings document atomically.
func WriteFile(path string, s Settings) error {
	data, err := yaml.Marshal(s.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode field settings: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".fields-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
