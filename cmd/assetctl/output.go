package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/assetstore/types"
)

// recordDoc is the JSON/YAML shape of a record: identity, field values in
// template order, then audit columns.
type recordDoc struct {
	ID           int64             `json:"id" yaml:"id"`
	Fields       map[string]string `json:"fields" yaml:"fields"`
	CreatedDate  string            `json:"created_date" yaml:"created_date"`
	CreatedBy    string            `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	ModifiedDate string            `json:"modified_date" yaml:"modified_date"`
	ModifiedBy   string            `json:"modified_by,omitempty" yaml:"modified_by,omitempty"`
	Deleted      bool              `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

func toRecordDoc(r types.Record) recordDoc {
	return recordDoc{
		ID:           r.ID,
		Fields:       r.Values,
		CreatedDate:  r.CreatedDate.Format(types.TimestampLayout),
		CreatedBy:    r.CreatedBy,
		ModifiedDate: r.ModifiedDate.Format(types.TimestampLayout),
		ModifiedBy:   r.ModifiedBy,
		Deleted:      r.IsDeleted,
	}
}

// outputResult writes v as json or yaml, or calls table for the table
// format.
func outputResult(w io.Writer, format string, v interface{}, table func(w io.Writer) error) error {
	switch strings.ToLower(format) {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	case "", "table":
		return table(w)
	}
	return NewUsageError("format output", fmt.Sprintf("unknown output format %q", format),
		"Use --format table, json or yaml")
}

// outputRecords prints records with one column per visible field.
func outputRecords(w io.Writer, format string, specs []types.FieldSpec, records []types.Record) error {
	docs := make([]recordDoc, len(records))
	for i, r := range records {
		docs[i] = toRecordDoc(r)
	}
	return outputResult(w, format, docs, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		headers := append([]string{"ID"}, types.FieldNames(specs)...)
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, r := range records {
			cells := make([]string, 0, len(headers))
			cells = append(cells, fmt.Sprint(r.ID))
			for _, spec := range specs {
				v, _ := r.Get(spec.Name)
				cells = append(cells, oneLine(v))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		return tw.Flush()
	})
}

// outputRecord prints one record as field/value lines.
func outputRecord(w io.Writer, format string, specs []types.FieldSpec, r types.Record) error {
	return outputResult(w, format, toRecordDoc(r), func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "ID\t%d\n", r.ID)
		for _, spec := range specs {
			v, _ := r.Get(spec.Name)
			name := spec.Name
			if spec.Required {
				name += " *"
			}
			fmt.Fprintf(tw, "%s\t%s\n", name, oneLine(v))
		}
		fmt.Fprintf(tw, "Created\t%s by %s\n", r.CreatedDate.Format(types.TimestampLayout), r.CreatedBy)
		fmt.Fprintf(tw, "Modified\t%s by %s\n", r.ModifiedDate.Format(types.TimestampLayout), r.ModifiedBy)
		if r.IsDeleted {
			fmt.Fprintln(tw, "Deleted\tyes")
		}
		return tw.Flush()
	})
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " / ")
}
