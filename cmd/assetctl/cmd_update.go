package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/assetstore/assetstore"
)

type updateOptions struct {
	or       bool
	all      bool
	set      []string
	appendTo []string
	clear    []string
	preset   string
}

type updateDoc struct {
	Updated int `json:"updated" yaml:"updated"`
}

func (cli *CLI) newUpdateCommand() *cobra.Command {
	opts := &updateOptions{}
	cmd := &cobra.Command{
		Use:   "update [FILTER...]",
		Short: "Change every record matching filters",
		Long: `Applies change instructions to every non-deleted record the filters
select, in a single transaction. If any record would end up with a
duplicate unique value or an empty required field, nothing is changed.

The value current_date is replaced with today's date.`,
		Example: `  assetctl update Location=Annex --set Location=Warehouse
  assetctl update "Serial Number=SN-4" --append "Notes=checked" --set "Audit Date=current_date"
  assetctl update Status=Retired --preset decommission`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runUpdate(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.or, "or", false, "Match records satisfying any clause")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Update every record when no filter is given")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "Replace a value (Field=Value)")
	cmd.Flags().StringArrayVar(&opts.appendTo, "append", nil, "Append to a value (Field=Value)")
	cmd.Flags().StringArrayVar(&opts.clear, "clear", nil, "Clear a field")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Apply a saved preset")
	return cmd
}

func (cli *CLI) runUpdate(cmd *cobra.Command, args []string, opts *updateOptions) error {
	ctx := cmd.Context()
	if len(args) == 0 && !opts.all {
		return NewUsageError("update", "no filters given",
			"Pass filters to select records, or --all to update every record")
	}
	changes, err := parseChanges(opts.set, opts.appendTo, opts.clear)
	if err != nil {
		return err
	}
	if opts.preset == "" && len(changes) == 0 {
		return NewUsageError("update", "no changes given", "Use --set, --append, --clear or --preset")
	}
	if opts.preset != "" && len(changes) > 0 {
		return NewUsageError("update", "--preset cannot be combined with --set, --append or --clear")
	}
	clauses, mode, err := parseFilters(args, opts.or)
	if err != nil {
		return err
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

	var n int
	if opts.preset != "" {
		n, err = store.ApplyPreset(ctx, opts.preset, pred)
	} else {
		n, err = store.ApplyBulkChange(ctx, pred, changes)
	}
	if err != nil {
		return WrapError("update records", err)
	}
	return outputResult(cmd.OutOrStdout(), cli.format(), updateDoc{Updated: n}, func(w io.Writer) error {
		fmt.Fprintf(w, "Updated %d record(s)\n", n)
		return nil
	})
}
