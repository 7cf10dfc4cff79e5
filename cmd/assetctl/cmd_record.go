package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/assetstore/types"
)

func (cli *CLI) newRecordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Add, show, delete and restore single records",
	}
	cmd.AddCommand(
		cli.newRecordAddCommand(),
		cli.newRecordGetCommand(),
		cli.newRecordDeleteCommand(),
		cli.newRecordRestoreCommand(),
		cli.newRecordHistoryCommand(),
	)
	return cmd
}

type addedDoc struct {
	ID int64 `json:"id" yaml:"id"`
}

func (cli *CLI) newRecordAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "add Field=Value...",
		Short:   "Insert a record",
		Example: `  assetctl record add "Asset Type=Laptop" "Serial Number=SN-42" Location=HQ`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(args)
			if err != nil {
				return err
			}
			store, err := cli.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			id, err := store.AddRecord(cmd.Context(), values)
			if err != nil {
				return WrapError("add record", err)
			}
			return outputResult(cmd.OutOrStdout(), cli.format(), addedDoc{ID: id}, func(w io.Writer) error {
				fmt.Fprintf(w, "Added record %d\n", id)
				return nil
			})
		},
	}
}

func (cli *CLI) newRecordGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one record, deleted or not",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			store, err := cli.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			record, err := store.GetRecord(cmd.Context(), id)
			if err != nil {
				return WrapError("get record", err)
			}
			specs, err := cli.visibleFields(cmd, store)
			if err != nil {
				return err
			}
			return outputRecord(cmd.OutOrStdout(), cli.format(), specs, record)
		},
	}
}

func (cli *CLI) newRecordDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Mark a record deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			store, err := cli.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := store.DeleteRecord(cmd.Context(), id); err != nil {
				return WrapError("delete record", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %d\n", id)
			return nil
		},
	}
}

func (cli *CLI) newRecordRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore ID",
		Short: "Restore a deleted record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			store, err := cli.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := store.RestoreRecord(cmd.Context(), id); err != nil {
				return WrapError("restore record", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored record %d\n", id)
			return nil
		},
	}
}

type auditDoc struct {
	Action   string `json:"action" yaml:"action"`
	Field    string `json:"field,omitempty" yaml:"field,omitempty"`
	OldValue string `json:"old_value,omitempty" yaml:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty" yaml:"new_value,omitempty"`
	Actor    string `json:"actor,omitempty" yaml:"actor,omitempty"`
	At       string `json:"at" yaml:"at"`
	BatchID  string `json:"batch_id" yaml:"batch_id"`
}

func (cli *CLI) newRecordHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show a record's audit trail, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			store, err := cli.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			entries, err := store.History(cmd.Context(), id)
			if err != nil {
				return WrapError("read history", err)
			}
			docs := make([]auditDoc, len(entries))
			for i, e := range entries {
				docs[i] = auditDoc{
					Action: e.Action, Field: e.Field, OldValue: e.OldValue, NewValue: e.NewValue,
					Actor: e.Actor, At: e.At.Format(types.TimestampLayout), BatchID: e.BatchID,
				}
			}
			return outputResult(cmd.OutOrStdout(), cli.format(), docs, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, strings.Join([]string{"AT", "ACTOR", "ACTION", "FIELD", "OLD", "NEW"}, "\t"))
				for _, d := range docs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						d.At, d.Actor, d.Action, d.Field, oneLine(d.OldValue), oneLine(d.NewValue))
				}
				return tw.Flush()
			})
		},
	}
}
