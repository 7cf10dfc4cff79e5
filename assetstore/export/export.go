package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arthur-debert/assetstore/assetstore"
	"github.com/arthur-debert/assetstore/types"
)

// Source is the part of the store an export reads from.
type Source interface {
	Fields(ctx context.Context) ([]types.FieldSpec, error)
	Execute(ctx context.Context, pred assetstore.Predicate, opts assetstore.QueryOptions) (assetstore.QueryResult, error)
}

// Request describes one export.
type Request struct {
	Predicate assetstore.Predicate
	Sort      []types.SortOrder
	// Hidden lists fields to leave out, usually the registry's excluded
	// fields.
	Hidden  func(specs []types.FieldSpec) []types.FieldSpec
	Options Options
}

// Build runs the request's query and lays the matches out as a table.
func Build(ctx context.Context, src Source, req Request) (*Table, error) {
	specs, err := src.Fields(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fields: %w", err)
	}
	if req.Hidden != nil {
		specs = req.Hidden(specs)
	}
	res, err := src.Execute(ctx, req.Predicate, assetstore.QueryOptions{Sort: req.Sort})
	if err != nil {
		return nil, err
	}
	return NewTable(specs, res.Records, req.Options), nil
}

// Write builds the table and serializes it to w.
func Write(ctx context.Context, w io.Writer, src Source, format *Format, req Request) (int, error) {
	t, err := Build(ctx, src, req)
	if err != nil {
		return 0, err
	}
	if err := format.Write(w, t); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", format.Name, err)
	}
	return len(t.Rows), nil
}

// WriteFile writes the export to path through a temporary file, so a failed
// export never leaves a truncated file behind. The format follows the
// extension when format is nil.
func WriteFile(ctx context.Context, path string, src Source, format *Format, req Request) (int, error) {
	if format == nil {
		format = ForPath(path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := Write(ctx, tmp, src, format, req)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to move export into place: %w", err)
	}
	return n, nil
}
