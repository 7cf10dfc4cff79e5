package template_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/assetstore/assetstore/template"
	"github.com/arthur-debert/assetstore/types"
)

func TestParse(t *testing.T) {
	specs, err := template.Parse([]string{"*Asset Type", "*Model", "Serial Number"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []types.FieldSpec{
		{Name: "Asset Type", Required: true, Order: 0},
		{Name: "Model", Required: true, Order: 1},
		{Name: "Serial Number", Required: false, Order: 2},
	}
	if diff := cmp.Diff(want, specs); diff != "" {
		t.Errorf("specs mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNormalizesHeaders(t *testing.T) {
	// decomposed e + combining acute, BOM, padding and a trailing blank
	headers := []string{"\uFEFF Location ", "* Cafe\u0301 ", ""}
	specs, err := template.Parse(headers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[0].Name != "Location" {
		t.Errorf("expected Location, got %q", specs[0].Name)
	}
	if specs[1].Name != "Caf\u00e9" || !specs[1].Required {
		t.Errorf("expected required composed Cafe, got %+v", specs[1])
	}
	if specs[1].Order != 1 {
		t.Errorf("expected order 1, got %d", specs[1].Order)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
	}{
		{"empty list", nil},
		{"only blanks", []string{"", "  "}},
		{"duplicate", []string{"Model", "*Model"}},
		{"duplicate other case", []string{"Model", "MODEL"}},
		{"system column", []string{"Model", "created_date"}},
		{"marker only", []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := template.Parse(tt.headers)
			var tfe *types.TemplateFormatError
			if !errors.As(err, &tfe) {
				t.Fatalf("expected TemplateFormatError, got %v", err)
			}
		})
	}
}

func TestRead(t *testing.T) {
	input := "*Asset Type,\"Model, Variant\",Serial Number\nLaptop,X200,SN-1\n"
	specs, err := template.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := types.FieldNames(specs)
	want := []string{"Asset Type", "Model, Variant", "Serial Number"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	if _, err := template.Read(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestReadFileTabDelimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.tsv")
	if err := os.WriteFile(path, []byte("*Model\tLocation\n"), 0644); err != nil {
		t.Fatal(err)
	}
	specs, err := template.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 || specs[1].Name != "Location" {
		t.Errorf("unexpected specs: %+v", specs)
	}
}

func TestHeadersRoundTrip(t *testing.T) {
	headers := []string{"*Asset Type", "Location"}
	specs, err := template.Parse(headers)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(headers, template.Headers(specs)); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
}
