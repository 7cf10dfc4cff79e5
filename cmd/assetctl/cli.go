package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/assetstore/assetstore"
	"github.com/arthur-debert/assetstore/assetstore/fields"
	"github.com/arthur-debert/assetstore/assetstore/template"
)

// Configuration keys. Flags use the same names with dashes.
const (
	keyDB         = "db"
	keyTable      = "table"
	keyTemplate   = "template"
	keyFieldsFile = "fields_file"
	keyActor      = "actor"
	keyLogLevel   = "log_level"
	keyLogQueries = "log_queries"
	keyBackupDir  = "backup_dir"
	keyBackupKeep = "backup_keep"
	keyFormat     = "format"
	keyFields     = "fields"
)

// CLI is the viper-configured assetctl command tree and the store it opens
// on demand.
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper

	logger      *slog.Logger
	closeLogs   func()
	registry    *fields.Registry
	store       *assetstore.Store
	configError error
}

// NewCLI builds the command tree.
func NewCLI() *CLI {
	cli := &CLI{viperInst: viper.New()}
	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// Execute runs the command line.
func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// Close releases the store and log files.
func (cli *CLI) Close() {
	if cli.store != nil {
		if err := cli.store.Close(); err != nil && cli.logger != nil {
			cli.logger.Warn("failed to close store", "error", err)
		}
		cli.store = nil
	}
	if cli.closeLogs != nil {
		cli.closeLogs()
		cli.closeLogs = nil
	}
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	v := cli.viperInst
	if configFile := os.Getenv("ASSETCTL_CONFIG"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("assetctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.assetctl")
		v.AddConfigPath("/etc/assetctl")
	}

	v.SetEnvPrefix("ASSETCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyDB, "assets.db")
	v.SetDefault(keyTable, assetstore.DefaultTable)
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyBackupKeep, 10)
	v.SetDefault(keyFormat, "table")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			cli.configError = err
		}
	}
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "assetctl",
		Short: "assetctl - local asset inventory",
		Long: `assetctl manages an asset inventory kept in a local SQLite database.

The table's columns follow a template file whose header row names the
fields; a leading * marks a field required. Field behaviour (dropdown,
unique, date, excluded, required) comes from a YAML settings file.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (ASSETCTL_*)
3. Configuration file (ASSETCTL_CONFIG, ./assetctl.yaml,
   ~/.assetctl/assetctl.yaml or /etc/assetctl/assetctl.yaml)

Examples:
  # Add columns for every field in the template
  assetctl --db inventory.db sync template.csv

  # Find laptops at HQ
  assetctl search "Asset Type=Laptop" Location=HQ

  # Find records audited before 2024
  assetctl search "Audit Date__before=2024-01-01"

  # Move every Annex record to the warehouse
  assetctl update Location=Annex --set Location=Warehouse`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cli.configError != nil {
				return NewConfigError(cmd.Name(), cli.configError.Error(), CommonSuggestions.CheckConfig)
			}
			logger, closer, err := initLogging(
				cli.viperInst.GetString(keyLogLevel),
				cli.viperInst.GetBool(keyLogQueries),
				cmd.OutOrStdout())
			if err != nil {
				return NewConfigError(cmd.Name(), err.Error(), CommonSuggestions.CheckPerms)
			}
			cli.logger, cli.closeLogs = logger, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			cli.Close()
			return nil
		},
	}

	cli.addGlobalFlags()
}

// addGlobalFlags adds persistent flags that apply to all commands
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.StringP("db", "d", "", "Database file path (default assets.db)")
	flags.String("table", "", "Asset table name (default assets)")
	flags.StringP("template", "t", "", "Template file synchronized before each command")
	flags.String("fields-file", "", "Field settings YAML file")
	flags.String("actor", "", "Name recorded as creator/modifier (default $USER)")
	flags.String("log-level", "", "Log level: debug|info|warn|error")
	flags.Bool("log-queries", false, "Also print generated SQL to stdout")
	flags.String("backup-dir", "", "Backup directory (default: backups/ next to the database)")
	flags.Int("backup-keep", 0, "Number of backups to keep (default 10)")
	flags.StringP("format", "f", "", "Output format: table|json|yaml")

	for _, name := range []string{"db", "table", "template", "fields-file", "actor", "log-level", "log-queries", "backup-dir", "backup-keep", "format"} {
		_ = cli.viperInst.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}
}

func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.newSyncCommand(),
		cli.newSearchCommand(),
		cli.newUpdateCommand(),
		cli.newRecordCommand(),
		cli.newSearchesCommand(),
		cli.newPresetsCommand(),
		cli.newFieldsCommand(),
		cli.newExportCommand(),
		cli.newBackupCommand(),
	)
}

// loadRegistry reads field settings from fields_file, then from the config
// file's fields section, then falls back to defaults.
func (cli *CLI) loadRegistry() (*fields.Registry, error) {
	if cli.registry != nil {
		return cli.registry, nil
	}
	v := cli.viperInst

	var settings fields.Settings
	switch {
	case v.GetString(keyFieldsFile) != "":
		s, err := fields.ReadFile(v.GetString(keyFieldsFile))
		if err != nil {
			return nil, err
		}
		settings = s
	case v.IsSet(keyFields):
		if err := v.UnmarshalKey(keyFields, &settings); err != nil {
			return nil, fmt.Errorf("failed to read fields from config: %w", err)
		}
		settings = settings.Normalize()
	default:
		settings = fields.DefaultSettings()
	}

	cli.registry = fields.NewRegistry(settings)
	return cli.registry, nil
}

// openStore opens the configured database. When a template is configured
// and syncTemplate is set, the schema is synchronized with it first.
func (cli *CLI) openStore(ctx context.Context, syncTemplate bool) (*assetstore.Store, error) {
	if cli.store != nil {
		return cli.store, nil
	}
	v := cli.viperInst

	registry, err := cli.loadRegistry()
	if err != nil {
		return nil, NewConfigError("load field settings", err.Error(), CommonSuggestions.CheckConfig)
	}

	actor := v.GetString(keyActor)
	if actor == "" {
		actor = os.Getenv("USER")
	}
	logger := cli.logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := assetstore.Open(ctx, v.GetString(keyDB), assetstore.Options{
		Table:    v.GetString(keyTable),
		Registry: registry,
		Logger:   logger,
		Actor:    actor,
	})
	if err != nil {
		return nil, WrapError("open database", err, CommonSuggestions.CheckDB)
	}
	cli.store = store

	if path := v.GetString(keyTemplate); syncTemplate && path != "" {
		if _, err := cli.synchronize(ctx, path); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (cli *CLI) synchronize(ctx context.Context, path string) (*syncReport, error) {
	specs, err := template.ReadFile(path)
	if err != nil {
		return nil, WrapError("read template", err)
	}
	version, err := cli.store.Synchronize(ctx, specs)
	if err != nil {
		return nil, WrapError("synchronize schema", err)
	}
	return &syncReport{Template: path, Version: version.Version, Columns: version.Columns, Added: version.Added}, nil
}

func (cli *CLI) format() string {
	return cli.viperInst.GetString(keyFormat)
}

func (cli *CLI) backupDir() string {
	if dir := cli.viperInst.GetString(keyBackupDir); dir != "" {
		return dir
	}
	return filepath.Join(filepath.Dir(cli.viperInst.GetString(keyDB)), "backups")
}
