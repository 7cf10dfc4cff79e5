package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/assetstore/assetstore"
	"github.com/arthur-debert/assetstore/types"
)

func (cli *CLI) newSearchesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "searches",
		Aliases: []string{"saved"},
		Short:   "Manage saved searches",
	}

	var or bool
	save := &cobra.Command{
		Use:     "save NAME FILTER...",
		Short:   "Save filters under a name",
		Example: `  assetctl searches save "Needs attention" --or Status=Repair "Audit Date__is-empty"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clauses, mode, err := parseFilters(args[1:], or)
			if err != nil {
				return err
			}
			store, err := cli.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			ss := types.SavedSearch{Name: args[0], Clauses: clauses, Mode: mode}
			if err := store.CreateSavedSearch(cmd.Context(), ss); err != nil {
				return WrapError("save search", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved search %q\n", ss.Name)
			return nil
		},
	}
	save.Flags().BoolVar(&or, "or", false, "Match records satisfying any clause")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cli.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			searches, err := store.ListSavedSearches(cmd.Context())
			if err != nil {
				return WrapError("list searches", err)
			}
			return outputResult(cmd.OutOrStdout(), cli.format(), searches, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tMODE\tCLAUSES")
				for _, ss := range searches {
					parts := make([]string, len(ss.Clauses))
					for i, c := range ss.Clauses {
						parts[i] = c.String()
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", ss.Name, ss.Mode, strings.Join(parts, "; "))
				}
				return tw.Flush()
			})
		},
	}

	opts := &searchOptions{}
	run := &cobra.Command{
		Use:   "run NAME",
		Short: "Run a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.saved = args[0]
			return cli.runSearch(cmd, nil, opts)
		},
	}
	run.Flags().StringSliceVarP(&opts.sort, "sort", "s", nil, "Sort by field; prefix with - for descending")
	run.Flags().IntVarP(&opts.page, "page", "p", 1, "Page number")
	run.Flags().IntVar(&opts.pageSize, "page-size", 50, "Records per page; 0 shows all")

	cmd.AddCommand(save, list, run,
		cli.newRenameCommand("saved search", func(s *assetstore.Store) renameFunc { return s.RenameSavedSearch }),
		cli.newDeleteNamedCommand("saved search", func(s *assetstore.Store) deleteFunc { return s.DeleteSavedSearch }),
	)
	return cmd
}

func (cli *CLI) newPresetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage bulk change presets",
	}

	var set, appendTo, clear []string
	save := &cobra.Command{
		Use:     "save NAME",
		Short:   "Save change instructions under a name",
		Example: `  assetctl presets save decommission --set Status=Retired --clear "IP Address" --set "Audit Date=current_date"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseChanges(set, appendTo, clear)
			if err != nil {
				return err
			}
			store, err := cli.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			p := types.Preset{Name: args[0], Changes: changes}
			if err := store.CreatePreset(cmd.Context(), p); err != nil {
				return WrapError("save preset", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved preset %q\n", p.Name)
			return nil
		},
	}
	save.Flags().StringArrayVar(&set, "set", nil, "Replace a value (Field=Value)")
	save.Flags().StringArrayVar(&appendTo, "append", nil, "Append to a value (Field=Value)")
	save.Flags().StringArrayVar(&clear, "clear", nil, "Clear a field")

	list := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cli.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			presets, err := store.ListPresets(cmd.Context())
			if err != nil {
				return WrapError("list presets", err)
			}
			return outputResult(cmd.OutOrStdout(), cli.format(), presets, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tCHANGES")
				for _, p := range presets {
					parts := make([]string, len(p.Changes))
					for i, c := range p.Changes {
						parts[i] = fmt.Sprintf("%s %s %q", c.Op, c.Field, c.Value)
						if c.Op == types.ChangeClear {
							parts[i] = fmt.Sprintf("%s %s", c.Op, c.Field)
						}
					}
					fmt.Fprintf(tw, "%s\t%s\n", p.Name, strings.Join(parts, "; "))
				}
				return tw.Flush()
			})
		},
	}

	updateOpts := &updateOptions{}
	apply := &cobra.Command{
		Use:     "apply NAME [FILTER...]",
		Short:   "Apply a preset to matching records",
		Example: `  assetctl presets apply decommission Status=Retired`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updateOpts.preset = args[0]
			return cli.runUpdate(cmd, args[1:], updateOpts)
		},
	}
	apply.Flags().BoolVar(&updateOpts.or, "or", false, "Match records satisfying any clause")
	apply.Flags().BoolVar(&updateOpts.all, "all", false, "Apply to every record when no filter is given")

	cmd.AddCommand(save, list, apply,
		cli.newRenameCommand("preset", func(s *assetstore.Store) renameFunc { return s.RenamePreset }),
		cli.newDeleteNamedCommand("preset", func(s *assetstore.Store) deleteFunc { return s.DeletePreset }),
	)
	return cmd
}

type (
	renameFunc func(ctx context.Context, oldName, newName string) error
	deleteFunc func(ctx context.Context, name string) error
)

func (cli *CLI) newRenameCommand(kind string, method func(*assetstore.Store) renameFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "rename OLD NEW",
		Short: fmt.Sprintf("Rename a %s", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cli.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := method(store)(cmd.Context(), args[0], args[1]); err != nil {
				return WrapError("rename "+kind, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s %q to %q\n", kind, args[0], args[1])
			return nil
		},
	}
}

func (cli *CLI) newDeleteNamedCommand(kind string, method func(*assetstore.Store) deleteFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: fmt.Sprintf("Delete a %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cli.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := method(store)(cmd.Context(), args[0]); err != nil {
				return WrapError("delete "+kind, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %q\n", kind, args[0])
			return nil
		},
	}
}
