package export

import (
	"github.com/arthur-debert/assetstore/assetstore/template"
	"github.com/arthur-debert/assetstore/types"
)

// Options controls which columns a Table carries.
type Options struct {
	// MarkRequired prefixes required field headers with the template
	// marker, so the output can be read back as a template.
	MarkRequired bool
	// IncludeID adds the record identity as the first column.
	IncludeID bool
	// IncludeAudit adds created/modified dates and actors after the fields.
	IncludeAudit bool
}

// Table is a header row plus one row of strings per record.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable lays records out in spec order. Missing values become empty
// cells.
func NewTable(specs []types.FieldSpec, records []types.Record, opts Options) *Table {
	t := &Table{}
	if opts.IncludeID {
		t.Headers = append(t.Headers, types.ColumnID)
	}
	if opts.MarkRequired {
		t.Headers = append(t.Headers, template.Headers(specs)...)
	} else {
		t.Headers = append(t.Headers, types.FieldNames(specs)...)
	}
	if opts.IncludeAudit {
		t.Headers = append(t.Headers,
			types.ColumnCreatedDate, types.ColumnCreatedBy,
			types.ColumnModifiedDate, types.ColumnModifiedBy)
	}

	t.Rows = make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, 0, len(t.Headers))
		if opts.IncludeID {
			row = append(row, formatID(rec.ID))
		}
		for _, spec := range specs {
			v, _ := rec.Get(spec.Name)
			row = append(row, v)
		}
		if opts.IncludeAudit {
			row = append(row,
				formatTime(rec.CreatedDate), rec.CreatedBy,
				formatTime(rec.ModifiedDate), rec.ModifiedBy)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
