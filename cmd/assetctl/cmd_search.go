package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/assetstore/assetstore"
	"github.com/arthur-debert/assetstore/types"
)

type searchOptions struct {
	or       bool
	sort     []string
	page     int
	pageSize int
	saved    string
}

type searchDoc struct {
	Total    int         `json:"total" yaml:"total"`
	Page     int         `json:"page" yaml:"page"`
	Pages    int         `json:"pages" yaml:"pages"`
	PageSize int         `json:"page_size" yaml:"page_size"`
	Records  []recordDoc `json:"records" yaml:"records"`
}

func (cli *CLI) newSearchCommand() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [FILTER...]",
		Short: "Find records matching filters",
		Long: `Filters take the form Field=Value for equality, or Field__operator=Value.

Operators: equals, not-equals, contains, not-contains, starts-with,
ends-with, is-empty, is-not-empty, before, after, between. The date
operators apply to date fields only; between takes "from..to".

Clauses are joined with AND unless --or is given. Deleted records are
never returned.`,
		Example: `  assetctl search Location=HQ "Asset Type=Laptop"
  assetctl search --or Status=Repair Status=Retired
  assetctl search "Audit Date__between=2024-01-01..2024-06-30" --sort -Model
  assetctl search --saved "Needs attention"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runSearch(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.or, "or", false, "Match records satisfying any clause")
	cmd.Flags().StringSliceVarP(&opts.sort, "sort", "s", nil, "Sort by field; prefix with - for descending")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Page number")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 50, "Records per page; 0 shows all")
	cmd.Flags().StringVar(&opts.saved, "saved", "", "Run a saved search instead of filter arguments")
	return cmd
}

func (cli *CLI) runSearch(cmd *cobra.Command, args []string, opts *searchOptions) error {
	ctx := cmd.Context()
	sort, err := parseSort(opts.sort)
	if err != nil {
		return err
	}
	qopts := assetstore.QueryOptions{Sort: sort, Page: opts.page, PageSize: opts.pageSize}

	store, err := cli.openStore(ctx, true)
	if err != nil {
		return err
	}

	var res assetstore.QueryResult
	if opts.saved != "" {
		if len(args) > 0 {
			return NewUsageError("search", "--saved cannot be combined with filter arguments")
		}
		res, err = store.RunSavedSearch(ctx, opts.saved, qopts)
	} else {
		clauses, mode, perr := parseFilters(args, opts.or)
		if perr != nil {
			return perr
		}
		res, err = store.Search(ctx, clauses, mode, qopts)
	}
	if err != nil {
		return WrapError("search", err)
	}

	specs, err := cli.visibleFields(cmd, store)
	if err != nil {
		return err
	}
	return outputSearch(cmd.OutOrStdout(), cli.format(), specs, res)
}

func (cli *CLI) visibleFields(cmd *cobra.Command, store *assetstore.Store) ([]types.FieldSpec, error) {
	specs, err := store.Fields(cmd.Context())
	if err != nil {
		return nil, WrapError("load fields", err, CommonSuggestions.CheckDB)
	}
	return store.Registry().Visible(specs), nil
}

func outputSearch(w io.Writer, format string, specs []types.FieldSpec, res assetstore.QueryResult) error {
	doc := searchDoc{Total: res.Total, Page: res.Page, Pages: res.Pages(), PageSize: res.PageSize}
	doc.Records = make([]recordDoc, len(res.Records))
	for i, r := range res.Records {
		doc.Records[i] = toRecordDoc(r)
	}
	return outputResult(w, format, doc, func(w io.Writer) error {
		if res.Total == 0 {
			fmt.Fprintln(w, "No matching records")
			return nil
		}
		if err := outputRecords(w, "table", specs, res.Records); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%d record(s), page %d of %d\n", res.Total, res.Page, res.Pages())
		return nil
	})
}
