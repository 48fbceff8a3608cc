package config

import (
	"strings"

	"github.com/crb2nu/loom-zed/internal/platform"
)

// DefaultRepo is the repository loom-core releases are published from.
const DefaultRepo = "crb2nu/loom-core"

// DefaultArgs is used when command.args is not set.
var DefaultArgs = []string{"proxy"}

// Settings is the user-facing extension configuration.
type Settings struct {
	Download DownloadSettings `mapstructure:"download" json:"download" yaml:"download"`
	Command  CommandSettings  `mapstructure:"command" json:"command" yaml:"command"`
}

// DownloadSettings controls release downloads.
type DownloadSettings struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Repo    string `mapstructure:"repo" json:"repo" yaml:"repo"`
	// Tag pins a release. Empty follows the latest release.
	Tag string `mapstructure:"tag" json:"tag,omitempty" yaml:"tag,omitempty"`
	// Asset overrides platform-based asset selection.
	Asset string `mapstructure:"asset" json:"asset,omitempty" yaml:"asset,omitempty"`

	OSAliases   map[string][]string `mapstructure:"os_aliases" json:"os_aliases,omitempty" yaml:"os_aliases,omitempty"`
	ArchAliases map[string][]string `mapstructure:"arch_aliases" json:"arch_aliases,omitempty" yaml:"arch_aliases,omitempty"`
}

// CommandSettings describes how loom is launched.
type CommandSettings struct {
	Path string            `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
	Args []string          `mapstructure:"args" json:"args" yaml:"args"`
	Env  map[string]string `mapstructure:"env" json:"env,omitempty" yaml:"env,omitempty"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() *Settings {
	return &Settings{
		Download: DownloadSettings{
			Enabled: true,
			Repo:    DefaultRepo,
		},
		Command: CommandSettings{
			Args: append([]string(nil), DefaultArgs...),
		},
	}
}

// Tokens returns the platform naming table extended with the configured
// aliases.
func (s *Settings) Tokens() (platform.Tokens, error) {
	return platform.DefaultTokens().Extend(s.Download.OSAliases, s.Download.ArchAliases)
}

// Pinned reports whether a release tag is configured.
func (s *Settings) Pinned() bool {
	return strings.TrimSpace(s.Download.Tag) != ""
}

func (s *Settings) normalize() {
	s.Download.Repo = strings.Trim(strings.TrimSpace(s.Download.Repo), "/")
	if s.Download.Repo == "" {
		s.Download.Repo = DefaultRepo
	}
	s.Download.Tag = strings.TrimSpace(s.Download.Tag)
	s.Download.Asset = strings.TrimSpace(s.Download.Asset)
	s.Command.Path = strings.TrimSpace(s.Command.Path)
	if s.Command.Args == nil {
		s.Command.Args = append([]string(nil), DefaultArgs...)
	}
}
