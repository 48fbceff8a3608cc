package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/crb2nu/loom-zed/internal/binary"
	"github.com/crb2nu/loom-zed/internal/config"
	"github.com/crb2nu/loom-zed/internal/launcher"
	"github.com/crb2nu/loom-zed/internal/platform"
	"github.com/crb2nu/loom-zed/internal/release"
)

// settingsNames are tried in order inside the user config directory when
// --config is not given.
var settingsNames = []string{"settings.json", "settings.yaml", "settings.yml", "settings.toml", "settings.lua"}

// app holds global flags and the collaborators commands are built from.
// Tests swap the collaborators.
type app struct {
	configPath string
	workdir    string
	verbose    bool

	logger       logr.Logger
	detector     platform.Detector
	resolverOpts []binary.Option
	launcherOpts []launcher.Option
}

func newApp() *app {
	return &app{
		logger:   logr.Discard(),
		detector: platform.NewDetector(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "loom-zed",
		Short: "Locate, download and launch loom-core for the Zed editor",
		Long: `loom-zed finds the loom executable for this machine, downloading a
release from GitHub when none is installed, and starts it with the
configured arguments and environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = newLogger(cmd.ErrOrStderr(), a.verbose)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "settings file (.json, .yaml, .toml or .lua)")
	root.PersistentFlags().StringVar(&a.workdir, "workdir", "", "install directory (default: user cache dir/loom-zed)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newEnsureCmd(a),
		newWhichCmd(a),
		newExecCmd(a),
		newPlatformCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// newLogger writes slog text records to w. Verbose output enables V(1).
func newLogger(w io.Writer, verbose bool) logr.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return logr.FromSlogHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// settingsPath returns --config, or the first settings file present in the
// user config directory, or "" for defaults only.
func (a *app) settingsPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range settingsNames {
		p := filepath.Join(dir, "loom-zed", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (a *app) loadSettings(ctx context.Context) (*config.Settings, error) {
	loader := config.NewLoader(config.WithDetector(a.detector), config.WithLogger(a.logger))
	return loader.Load(ctx, a.settingsPath())
}

func (a *app) installDir() (string, error) {
	if a.workdir != "" {
		return a.workdir, nil
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache directory: %w (pass --workdir)", err)
	}
	return filepath.Join(cache, "loom-zed"), nil
}

func (a *app) newResolver(ctx context.Context, s *config.Settings) (*binary.Resolver, error) {
	tokens, err := s.Tokens()
	if err != nil {
		return nil, fmt.Errorf("download aliases: %w", err)
	}
	info, err := a.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	workdir, err := a.installDir()
	if err != nil {
		return nil, err
	}

	opts := []binary.Option{
		binary.WithPlatform(info.Descriptor),
		binary.WithTokens(tokens),
		binary.WithLogger(a.logger),
		binary.WithDownloadEnabled(s.Download.Enabled),
		binary.WithFetcher(release.NewGitHubClient(
			release.WithUserAgent("loom-zed/"+Version),
			release.WithLogger(a.logger),
		)),
	}
	return binary.NewResolver(workdir, append(opts, a.resolverOpts...)...)
}

func (a *app) newLauncher(ctx context.Context) (*launcher.Launcher, error) {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	r, err := a.newResolver(ctx, s)
	if err != nil {
		return nil, err
	}
	opts := append([]launcher.Option{launcher.WithLogger(a.logger)}, a.launcherOpts...)
	return launcher.New(s, r, r.Platform(), opts...), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the loom-zed version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "loom-zed %s\n", Version)
			return err
		},
	}
}
