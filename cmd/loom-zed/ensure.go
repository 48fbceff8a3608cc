package main

import (
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/crb2nu/loom-zed/internal/binary"
	"github.com/crb2nu/loom-zed/internal/launcher"
)

func newEnsureCmd(a *app) *cobra.Command {
	var (
		format string
		asJSON bool
		tag    string
	)
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Install loom-core from GitHub releases if needed and print the install",
		Long: `ensure resolves the configured release (download.tag, or the latest
release), downloads and verifies the asset for this platform when it is not
cached yet, and prints where the executable lives. command.path, when set,
is validated and printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, asJSON)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := a.loadSettings(ctx)
			if err != nil {
				return err
			}
			if tag != "" {
				s.Download.Tag = tag
			}
			r, err := a.newResolver(ctx, s)
			if err != nil {
				return err
			}

			rec, err := r.EnsureInstall(ctx, binary.InstallRequest{
				Dependency:   launcher.DependencyName,
				Repo:         s.Download.Repo,
				Tag:          s.Download.Tag,
				Asset:        s.Download.Asset,
				ExplicitPath: s.Command.Path,
				Companions:   []string{launcher.CompanionName},
			})
			if err != nil {
				return err
			}

			v := viewRecord(rec)
			if f == formatText {
				return writeText(cmd.OutOrStdout(), v)
			}
			return writeStructured(cmd.OutOrStdout(), f, v)
		},
	}
	addOutputFlags(cmd, &format, &asJSON)
	cmd.Flags().StringVar(&tag, "tag", "", "release tag to install (overrides download.tag)")
	return cmd
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
