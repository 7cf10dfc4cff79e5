package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/assetstore/assetstore"
	"github.com/arthur-debert/assetstore/assetstore/export"
)

type exportOptions struct {
	or        bool
	out       string
	format    string
	sort      []string
	allFields bool
	withID    bool
	withAudit bool
}

func (cli *CLI) newExportCommand() *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export [FILTER...]",
		Short: "Write matching records as CSV, TSV or Markdown",
		Long: `Exports the records the filters select. Without filters every
non-deleted record is exported. The header row marks required fields
with *, so a CSV export can be used as a template.

The format follows --format, then the --out extension, then CSV.`,
		Example: `  assetctl export Location=Annex --out annex.csv
  assetctl export --format markdown --sort Model`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			clauses, mode, err := parseFilters(args, opts.or)
			if err != nil {
				return err
			}
			sort, err := parseSort(opts.sort)
			if err != nil {
				return err
			}

			var format *export.Format
			if opts.format != "" {
				if format, err = export.Get(opts.format); err != nil {
					return NewUsageError("export", err.Error())
				}
			}

			store, err := cli.openStore(ctx, true)
			if err != nil {
				return err
			}
			pred := assetstore.MatchAll()
			if len(clauses) > 0 {
				if pred, err = store.BuildFilter(ctx, clauses, mode); err != nil {
					return WrapError("build filter", err)
				}
			}

			req := export.Request{
				Predicate: pred,
				Sort:      sort,
				Options: export.Options{
					MarkRequired: true,
					IncludeID:    opts.withID,
					IncludeAudit: opts.withAudit,
				},
			}
			if !opts.allFields {
				req.Hidden = store.Registry().Visible
			}

			if opts.out == "" {
				if format == nil {
					format = export.ForPath("")
				}
				_, err = export.Write(ctx, cmd.OutOrStdout(), store, format, req)
				return WrapError("export", err)
			}
			n, err := export.WriteFile(ctx, opts.out, store, format, req)
			if err != nil {
				return WrapError("export", err, CommonSuggestions.CheckPerms)
			}
			cli.logger.Info("export written", "path", opts.out, "records", n)
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d record(s) to %s\n", n, opts.out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.or, "or", false, "Match records satisfying any clause")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&opts.format, "as", "", "Export format: csv|tsv|markdown")
	cmd.Flags().StringSliceVarP(&opts.sort, "sort", "s", nil, "Sort by field; prefix with - for descending")
	cmd.Flags().BoolVar(&opts.allFields, "all-fields", false, "Include excluded fields")
	cmd.Flags().BoolVar(&opts.withID, "with-id", false, "Add the record ID column")
	cmd.Flags().BoolVar(&opts.withAudit, "with-audit", false, "Add created/modified columns")
	return cmd
}
