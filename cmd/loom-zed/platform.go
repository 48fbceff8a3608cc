package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crb2nu/loom-zed/internal/platform"
)

type platformView struct {
	OS      platform.OS   `json:"os" yaml:"os"`
	Arch    platform.Arch `json:"arch" yaml:"arch"`
	RawOS   string        `json:"raw_os" yaml:"raw_os"`
	RawArch string        `json:"raw_arch" yaml:"raw_arch"`
	Distro  string        `json:"distro,omitempty" yaml:"distro,omitempty"`
	Family  string        `json:"family,omitempty" yaml:"family,omitempty"`
	Version string        `json:"distro_version,omitempty" yaml:"distro_version,omitempty"`
	Asset   string        `json:"asset_suffix" yaml:"asset_suffix"`
}

func newPlatformCmd(a *app) *cobra.Command {
	var (
		format string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform and the asset suffix it maps to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, asJSON)
			if err != nil {
				return err
			}
			info, err := a.detector.Detect(cmd.Context())
			if err != nil {
				return err
			}
			tokens := platform.DefaultTokens()
			v := platformView{
				OS:      info.OS,
				Arch:    info.Arch,
				RawOS:   info.RawOS,
				RawArch: info.RawArch,
				Distro:  info.Distro,
				Family:  info.Family,
				Version: info.Version,
				Asset: fmt.Sprintf("%s_%s.%s",
					tokens.OSToken(info.OS), tokens.ArchToken(info.Arch), info.ArchiveExt()),
			}

			if f != formatText {
				return writeStructured(cmd.OutOrStdout(), f, v)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s/%s (reported %s/%s)\n", v.OS, v.Arch, v.RawOS, v.RawArch)
			if v.Distro != "" {
				fmt.Fprintf(out, "distro: %s %s (%s)\n", v.Distro, v.Version, v.Family)
			}
			_, err = fmt.Fprintf(out, "asset: *_%s\n", v.Asset)
			return err
		},
	}
	addOutputFlags(cmd, &format, &asJSON)
	return cmd
}
