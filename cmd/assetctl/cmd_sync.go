package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/assetstore/assetstore/template"
)

type syncReport struct {
	Template string   `json:"template" yaml:"template"`
	Version  int      `json:"version" yaml:"version"`
	Columns  []string `json:"columns" yaml:"columns"`
	Added    []string `json:"added" yaml:"added"`
}

type checkReport struct {
	Template string   `json:"template" yaml:"template"`
	InSync   bool     `json:"in_sync" yaml:"in_sync"`
	ToAdd    []string `json:"to_add" yaml:"to_add"`
	Retained []string `json:"retained" yaml:"retained"`
}

func (cli *CLI) newSyncCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "sync [TEMPLATE]",
		Short: "Add a column for every template field the table lacks",
		Long: `Reads the template's header row and adds a column for each field the
asset table does not have yet. Columns are never removed: fields dropped
from the template keep their data.

With --check nothing is written; the command reports what would change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cli.viperInst.GetString(keyTemplate)
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return NewUsageError("sync", "no template given", "Pass a template path or set --template")
			}

			store, err := cli.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}

			if check {
				specs, err := template.ReadFile(path)
				if err != nil {
					return WrapError("read template", err)
				}
				diff, err := store.CompareTemplate(cmd.Context(), specs)
				if err != nil {
					return WrapError("compare template", err, CommonSuggestions.CheckDB)
				}
				report := checkReport{Template: path, InSync: diff.InSync(), ToAdd: diff.ToAdd, Retained: diff.Retained}
				return outputResult(cmd.OutOrStdout(), cli.format(), report, func(w io.Writer) error {
					if report.InSync {
						fmt.Fprintln(w, "Schema is in sync with the template")
					} else {
						fmt.Fprintf(w, "Columns to add: %s\n", strings.Join(report.ToAdd, ", "))
					}
					if len(report.Retained) > 0 {
						fmt.Fprintf(w, "Retained columns not in template: %s\n", strings.Join(report.Retained, ", "))
					}
					return nil
				})
			}

			report, err := cli.synchronize(cmd.Context(), path)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), cli.format(), report, func(w io.Writer) error {
				if len(report.Added) == 0 {
					fmt.Fprintf(w, "Schema already up to date (version %d)\n", report.Version)
					return nil
				}
				fmt.Fprintf(w, "Added %d column(s): %s\n", len(report.Added), strings.Join(report.Added, ", "))
				fmt.Fprintf(w, "Schema version %d\n", report.Version)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Report differences without changing the database")
	return cmd
}
