// Package template parses asset template headers into field specifications.
//
// A template is a delimited text file whose first line names the asset
// fields in display order. A leading '*' marks a field as required:
//
//	*Asset Type,*Model,Serial Number,Location
package template

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/arthur-debert/assetstore/internal/validation"
	"github.com/arthur-debert/assetstore/types"
)

// RequiredMarker prefixes required field names in a template header.
const RequiredMarker = "*"

const utf8BOM = "\uFEFF"

// Parse converts raw header strings into field specs. Blank headers, such as
// the ones produced by trailing delimiters, are skipped.
func Parse(headers []string) ([]types.FieldSpec, error) {
	if len(headers) == 0 {
		return nil, &types.TemplateFormatError{Reason: "header list is empty"}
	}

	specs := make([]types.FieldSpec, 0, len(headers))
	seen := make(map[string]string)

	for i, raw := range headers {
		h := raw
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(norm.NFC.String(h))
		if h == "" {
			continue
		}

		spec := types.FieldSpec{Order: len(specs)}
		if strings.HasPrefix(h, RequiredMarker) {
			spec.Required = true
			h = strings.TrimSpace(strings.TrimLeft(h, RequiredMarker))
		}
		spec.Name = h

		if types.IsSystemColumn(h) {
			return nil, &types.TemplateFormatError{Header: raw, Reason: "collides with a system-managed column"}
		}
		if err := validation.ValidateFieldName(h); err != nil {
			return nil, &types.TemplateFormatError{Header: raw, Reason: err.Error()}
		}

		key := strings.ToLower(h)
		if prev, dup := seen[key]; dup {
			return nil, &types.TemplateFormatError{Header: raw, Reason: fmt.Sprintf("duplicates %q", prev)}
		}
		seen[key] = h
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, &types.TemplateFormatError{Reason: "no field names found"}
	}
	return specs, nil
}

// Read parses the first line of a comma-delimited template.
func Read(r io.Reader) ([]types.FieldSpec, error) {
	return ReadDelimited(r, ',')
}

// ReadDelimited parses the first line of a template using delim.
func ReadDelimited(r io.Reader, delim rune) ([]types.FieldSpec, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &types.TemplateFormatError{Reason: "template file is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template header: %w", err)
	}
	return Parse(headers)
}

// ReadFile parses a template file. Files ending in .tsv or .tab are read as
// tab-delimited.
func ReadFile(path string) ([]types.FieldSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer func() { _ = f.Close() }()

	delim := ','
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		delim = '\t'
	}
	return ReadDelimited(f, delim)
}

// Headers renders specs back into header strings, marking required fields.
func Headers(specs []types.FieldSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		if s.Required {
			out[i] = RequiredMarker + s.Name
		} else {
			out[i] = s.Name
		}
	}
	return out
}
