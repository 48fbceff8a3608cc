// Package launcher finds the loom executable and builds the command line and
// environment it is started with.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"github.com/crb2nu/loom-zed/internal/binary"
	"github.com/crb2nu/loom-zed/internal/config"
	"github.com/crb2nu/loom-zed/internal/platform"
)

const (
	// DependencyName is the executable loom-core ships.
	DependencyName = "loom"
	// CompanionName is the daemon shipped next to it in release archives.
	CompanionName = "loomd"

	// StopGrace is how long loom gets to exit after an interrupt before it
	// is killed.
	StopGrace = 5 * time.Second
)

// Source records how the executable was found.
type Source string

const (
	SourceExplicit  Source = "explicit"
	SourcePath      Source = "path"
	SourceWellKnown Source = "well-known"
	SourceDownload  Source = "download"
	SourceFallback  Source = "fallback"
)

// Installer resolves an install request to an executable on disk.
// *binary.Resolver implements it.
type Installer interface {
	EnsureInstall(ctx context.Context, req binary.InstallRequest) (*binary.InstallRecord, error)
}

// Command is a located loom invocation.
type Command struct {
	Path   string
	Args   []string
	Env    []string
	Source Source
	// Record is set when the executable went through the installer.
	Record *binary.InstallRecord
}

// Cmd builds an exec.Cmd. args replace the configured arguments when given.
// When ctx is done loom is sent an interrupt and killed only if it is still
// running StopGrace later.
func (c *Command) Cmd(ctx context.Context, args ...string) *exec.Cmd {
	if len(args) == 0 {
		args = c.Args
	}
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Env = slices.Clone(c.Env)
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = StopGrace
	return cmd
}

// interrupt asks p to stop, falling back to a kill where interrupts cannot
// be delivered (Windows).
func interrupt(p *os.Process) error {
	if err := p.Signal(os.Interrupt); err != nil {
		return p.Kill()
	}
	return nil
}

// Launcher locates loom according to settings.
type Launcher struct {
	settings   *config.Settings
	installer  Installer
	executable string
	lookPath   func(string) (string, error)
	wellKnown  []string
	environ    func() []string
	logger     logr.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(l *Launcher) { l.lookPath = fn }
}

// WithWellKnownDirs replaces the directories searched after PATH.
func WithWellKnownDirs(dirs ...string) Option {
	return func(l *Launcher) { l.wellKnown = dirs }
}

// WithEnviron replaces os.Environ as the base environment.
func WithEnviron(fn func() []string) Option {
	return func(l *Launcher) { l.environ = fn }
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(l *Launcher) { l.logger = logger }
}

// New creates a Launcher for the given platform.
func New(settings *config.Settings, installer Installer, desc platform.Descriptor, opts ...Option) *Launcher {
	if settings == nil {
		settings = config.Defaults()
	}
	l := &Launcher{
		settings:   settings,
		installer:  installer,
		executable: desc.ExecutableName(DependencyName),
		lookPath:   exec.LookPath,
		wellKnown:  DefaultWellKnownDirs(desc),
		environ:    os.Environ,
		logger:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultWellKnownDirs lists where loom is commonly installed outside PATH.
func DefaultWellKnownDirs(desc platform.Descriptor) []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"))
	}
	if desc.IsWindows() {
		return dirs
	}
	return append(dirs, "/usr/local/bin", "/opt/homebrew/bin")
}

// Locate finds loom. The search order is command.path, PATH, the well-known
// directories, a release download when enabled, and finally the bare name.
// command.env is applied on top of the process environment, and a downloaded
// install's directory is put in front of PATH.
func (l *Launcher) Locate(ctx context.Context) (*Command, error) {
	cmd, err := l.locate(ctx)
	if err != nil {
		return nil, err
	}

	cmd.Args = slices.Clone(l.settings.Command.Args)
	cmd.Env = mergeEnv(l.environ(), l.settings.Command.Env)
	if cmd.Source == SourceDownload {
		cmd.Env = PrefixPath(cmd.Env, cmd.Record.BinDir)
	}
	l.logger.V(1).Info("located loom", "path", cmd.Path, "source", cmd.Source)
	return cmd, nil
}

func (l *Launcher) locate(ctx context.Context) (*Command, error) {
	if p := l.settings.Command.Path; p != "" {
		rec, err := l.installer.EnsureInstall(ctx, binary.InstallRequest{
			Dependency:   DependencyName,
			ExplicitPath: p,
		})
		if err != nil {
			return nil, fmt.Errorf("command.path: %w", err)
		}
		return &Command{Path: rec.Path, Source: SourceExplicit, Record: rec}, nil
	}

	if p, err := l.lookPath(l.executable); err == nil {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		return &Command{Path: p, Source: SourcePath}, nil
	}

	for _, dir := range l.wellKnown {
		candidate := filepath.Join(dir, l.executable)
		if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
			return &Command{Path: candidate, Source: SourceWellKnown}, nil
		}
	}

	d := l.settings.Download
	if d.Enabled {
		l.logger.Info("downloading loom-core", "repo", d.Repo, "tag", d.Tag, "asset", d.Asset)
		rec, err := l.installer.EnsureInstall(ctx, binary.InstallRequest{
			Dependency: DependencyName,
			Repo:       d.Repo,
			Tag:        d.Tag,
			Asset:      d.Asset,
			Companions: []string{CompanionName},
		})
		if err != nil {
			return nil, err
		}
		return &Command{Path: rec.Path, Source: SourceDownload, Record: rec}, nil
	}

	l.logger.Info("loom not found and downloads are disabled; relying on the host PATH")
	return &Command{Path: DependencyName, Source: SourceFallback}, nil
}
