package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/arthur-debert/assetstore/types"
)

// CSV writes comma-separated values with a header row.
var CSV = &Format{
	Name:      "csv",
	Extension: ".csv",
	Write: func(w io.Writer, t *Table) error {
		return writeDelimited(w, t, ',')
	},
}

// TSV writes tab-separated values with a header row.
var TSV = &Format{
	Name:      "tsv",
	Extension: ".tsv",
	Write: func(w io.Writer, t *Table) error {
		return writeDelimited(w, t, '\t')
	},
}

func writeDelimited(w io.Writer, t *Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(types.TimestampLayout)
}

func init() {
	mustRegister(CSV)
	mustRegister(TSV)
}
