package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWhichCmd(a *app) *cobra.Command {
	var (
		format string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "which",
		Short: "Print the loom executable that would be launched",
		Long: `which runs the same search as exec: command.path, PATH, well-known
install directories, then a release download when enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, asJSON)
			if err != nil {
				return err
			}
			l, err := a.newLauncher(cmd.Context())
			if err != nil {
				return err
			}
			c, err := l.Locate(cmd.Context())
			if err != nil {
				return err
			}

			switch f {
			case formatText:
				if a.verbose {
					return writeText(cmd.OutOrStdout(), viewCommand(c))
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), c.Path)
				return err
			default:
				return writeStructured(cmd.OutOrStdout(), f, viewCommand(c))
			}
		},
	}
	addOutputFlags(cmd, &format, &asJSON)
	return cmd
}
