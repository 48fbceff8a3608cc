package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crb2nu/loom-zed/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect loom-zed settings",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings after defaults and environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, false)
			if err != nil {
				return err
			}
			if f == formatText {
				f = formatYAML
			}
			s, err := a.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			return writeStructured(cmd.OutOrStdout(), f, s)
		},
	}
	show.Flags().StringVarP(&format, "output", "o", string(formatYAML), "output format: json or yaml")

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the settings file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.settingsPath()
			if p == "" {
				p = "(none, using defaults)"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema settings files are validated against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(config.Schema())
			return err
		},
	}

	cmd.AddCommand(show, path, schema)
	return cmd
}
