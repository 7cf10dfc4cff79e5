package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type backupDoc struct {
	Path string `json:"path" yaml:"path"`
}

func (cli *CLI) newBackupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the database",
		Long: `Copies the database into the backup directory (--backup-dir, default
backups/ next to the database) and keeps the newest --backup-keep copies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cli.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			path, err := store.Backup(cmd.Context(), cli.backupDir(), cli.viperInst.GetInt(keyBackupKeep))
			if err != nil {
				return WrapError("backup", err, CommonSuggestions.CheckPerms)
			}
			return outputResult(cmd.OutOrStdout(), cli.format(), backupDoc{Path: path}, func(w io.Writer) error {
				fmt.Fprintf(w, "Backup written to %s\n", path)
				return nil
			})
		},
	}
}
