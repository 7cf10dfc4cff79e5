package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/assetstore/assetstore/fields"
	"github.com/arthur-debert/assetstore/assetstore/template"
)

type fieldDoc struct {
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Unique   bool   `json:"unique,omitempty" yaml:"unique,omitempty"`
	Excluded bool   `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

func (cli *CLI) newFieldsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Show and edit field settings",
	}
	cmd.AddCommand(cli.newFieldsShowCommand(), cli.newFieldsSetCommand())
	return cmd
}

func (cli *CLI) newFieldsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List the table's fields with their settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cli.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			specs, err := store.Fields(cmd.Context())
			if err != nil {
				return WrapError("load fields", err, CommonSuggestions.CheckDB)
			}
			snap := store.Registry().Snapshot()
			docs := make([]fieldDoc, len(specs))
			for i, spec := range specs {
				c := snap.Classify(spec.Name)
				docs[i] = fieldDoc{
					Name:     spec.Name,
					Kind:     spec.Kind.String(),
					Required: spec.Required,
					Unique:   c.Unique,
					Excluded: c.Excluded,
				}
			}
			return outputResult(cmd.OutOrStdout(), cli.format(), docs, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FIELD\tKIND\tFLAGS")
				for _, d := range docs {
					var flags []string
					if d.Required {
						flags = append(flags, "required")
					}
					if d.Unique {
						flags = append(flags, "unique")
					}
					if d.Excluded {
						flags = append(flags, "excluded")
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Kind, strings.Join(flags, ","))
				}
				return tw.Flush()
			})
		},
	}
}

// settingsList returns the list in s that holds fields of the named kind.
func settingsList(s *fields.Settings, kind string) (*[]string, bool) {
	switch strings.ToLower(kind) {
	case "dropdown":
		return &s.DropdownFields, true
	case "required":
		return &s.RequiredFields, true
	case "excluded":
		return &s.ExcludedFields, true
	case "unique":
		return &s.UniqueFields, true
	case "date":
		return &s.DateFields, true
	}
	return nil, false
}

func (cli *CLI) newFieldsSetCommand() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "set KIND FIELD...",
		Short: "Add fields to (or remove them from) a settings list",
		Long: `Edits the field settings file named by --fields-file. KIND is one of
dropdown, required, excluded, unique or date.`,
		Example: `  assetctl --fields-file fields.yaml fields set unique "Asset Tag"
  assetctl --fields-file fields.yaml fields set excluded Notes --remove`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cli.viperInst.GetString(keyFieldsFile)
			if path == "" {
				return NewConfigError("set fields", "no fields file configured",
					"Pass --fields-file or set ASSETCTL_FIELDS_FILE")
			}
			if _, ok := settingsList(&fields.Settings{}, args[0]); !ok {
				return NewUsageError("set fields", fmt.Sprintf("unknown field kind %q", args[0]),
					"Use dropdown, required, excluded, unique or date")
			}
			registry, err := cli.loadRegistry()
			if err != nil {
				return NewConfigError("load field settings", err.Error(), CommonSuggestions.CheckConfig)
			}

			names := args[1:]
			registry.Update(func(s *fields.Settings) {
				list, _ := settingsList(s, args[0])
				if remove {
					*list = withoutNames(*list, names)
				} else {
					*list = append(*list, names...)
				}
				*s = s.Normalize()
			})
			if err := registry.Save(path); err != nil {
				return NewConfigError("save field settings", err.Error(), CommonSuggestions.CheckPerms)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s fields in %s\n", strings.ToLower(args[0]), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the fields instead of adding them")
	return cmd
}

func withoutNames(list, names []string) []string {
	out := list[:0:0]
	for _, item := range list {
		drop := false
		for _, n := range names {
			if strings.EqualFold(bareName(item), bareName(n)) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, item)
		}
	}
	return out
}

func bareName(n string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(n), template.RequiredMarker))
}
