package launcher

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/crb2nu/loom-zed/internal/binary"
	"github.com/crb2nu/loom-zed/internal/config"
	"github.com/crb2nu/loom-zed/internal/platform"
	"github.com/crb2nu/loom-zed/internal/testutil"
)

var linuxAMD64 = platform.Descriptor{OS: platform.OSLinux, Arch: platform.ArchAMD64}

type fakeInstaller struct {
	record *binary.InstallRecord
	err    error
	reqs   []binary.InstallRequest
}

func (f *fakeInstaller) EnsureInstall(ctx context.Context, req binary.InstallRequest) (*binary.InstallRecord, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if req.ExplicitPath != "" {
		return &binary.InstallRecord{Path: req.ExplicitPath, BinDir: filepath.Dir(req.ExplicitPath)}, nil
	}
	return f.record, nil
}

func notFound(string) (string, error) { return "", exec.ErrNotFound }

func staticEnv(env ...string) func() []string {
	return func() []string { return append([]string(nil), env...) }
}

func TestLocate_ExplicitPath(t *testing.T) {
	s := config.Defaults()
	s.Command.Path = "/opt/loom/bin/loom"
	s.Command.Env = map[string]string{"LOOM_LOG": "debug"}
	inst := &fakeInstaller{}

	cmd, err := New(s, inst, linuxAMD64,
		WithLookPath(func(string) (string, error) {
			t.Error("PATH must not be searched when command.path is set")
			return "", exec.ErrNotFound
		}),
		WithEnviron(staticEnv("PATH=/usr/bin")),
	).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if cmd.Source != SourceExplicit || cmd.Path != "/opt/loom/bin/loom" {
		t.Errorf("got %s %q, want explicit /opt/loom/bin/loom", cmd.Source, cmd.Path)
	}
	if len(inst.reqs) != 1 || inst.reqs[0].ExplicitPath != "/opt/loom/bin/loom" {
		t.Errorf("installer requests = %+v", inst.reqs)
	}
	if want := []string{"PATH=/usr/bin", "LOOM_LOG=debug"}; !reflect.DeepEqual(cmd.Env, want) {
		t.Errorf("Env mismatch: got %v, want %v", cmd.Env, want)
	}
	if !reflect.DeepEqual(cmd.Args, config.DefaultArgs) {
		t.Errorf("Args mismatch: got %v, want %v", cmd.Args, config.DefaultArgs)
	}
}

func TestLocate_ExplicitPathError(t *testing.T) {
	s := config.Defaults()
	s.Command.Path = "/nope/loom"
	inst := &fakeInstaller{err: binary.ErrNotExecutable}

	_, err := New(s, inst, linuxAMD64, WithLookPath(notFound)).Locate(context.Background())
	if !errors.Is(err, binary.ErrNotExecutable) {
		t.Errorf("error = %v, want ErrNotExecutable", err)
	}
}

func TestLocate_PathLookup(t *testing.T) {
	inst := &fakeInstaller{}
	var looked string

	cmd, err := New(config.Defaults(), inst, linuxAMD64,
		WithLookPath(func(name string) (string, error) {
			looked = name
			return "/usr/bin/loom", nil
		}),
		WithEnviron(staticEnv("PATH=/usr/bin")),
	).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if looked != "loom" {
		t.Errorf("looked up %q, want loom", looked)
	}
	if cmd.Source != SourcePath || cmd.Path != "/usr/bin/loom" {
		t.Errorf("got %s %q, want path /usr/bin/loom", cmd.Source, cmd.Path)
	}
	if len(inst.reqs) != 0 {
		t.Errorf("installer should not be called, got %+v", inst.reqs)
	}
	if want := []string{"PATH=/usr/bin"}; !reflect.DeepEqual(cmd.Env, want) {
		t.Errorf("PATH must not be rewritten for a PATH hit: %v", cmd.Env)
	}
}

func TestLocate_WindowsExecutableName(t *testing.T) {
	var looked string
	windows := platform.Descriptor{OS: platform.OSWindows, Arch: platform.ArchAMD64}

	_, _ = New(config.Defaults(), &fakeInstaller{}, windows,
		WithLookPath(func(name string) (string, error) {
			looked = name
			return `C:\loom\loom.exe`, nil
		}),
	).Locate(context.Background())

	if looked != "loom.exe" {
		t.Errorf("looked up %q, want loom.exe", looked)
	}
}

func TestLocate_WellKnownDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shell scripts")
	}
	testutil.SetupTestEnv(t)
	empty := t.TempDir()
	dir := t.TempDir()
	path := testutil.WriteExecutable(t, dir, "loom", `echo "loom 0.9.1"`)
	inst := &fakeInstaller{}

	cmd, err := New(config.Defaults(), inst, linuxAMD64,
		WithLookPath(notFound),
		WithWellKnownDirs(filepath.Join(empty, "missing"), dir),
	).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if cmd.Source != SourceWellKnown || cmd.Path != path {
		t.Errorf("got %s %q, want well-known %q", cmd.Source, cmd.Path, path)
	}
	if len(inst.reqs) != 0 {
		t.Errorf("installer should not be called, got %+v", inst.reqs)
	}
}

func TestLocate_Download(t *testing.T) {
	s := config.Defaults()
	s.Download.Tag = "v0.9.1"
	s.Download.Asset = "loom-core_v0.9.1_linux_amd64.tar.gz"
	rec := &binary.InstallRecord{
		Path:       "/cache/loom-core/v0.9.1/loom",
		Version:    "v0.9.1",
		BinDir:     "/cache/loom-core/v0.9.1",
		ResolvedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	inst := &fakeInstaller{record: rec}

	cmd, err := New(s, inst, linuxAMD64,
		WithLookPath(notFound),
		WithWellKnownDirs(),
		WithEnviron(staticEnv("HOME=/home/user", "PATH=/usr/bin")),
	).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if cmd.Source != SourceDownload || cmd.Path != rec.Path || cmd.Record != rec {
		t.Errorf("got %+v, want download of %q", cmd, rec.Path)
	}
	want := binary.InstallRequest{
		Dependency: "loom",
		Repo:       config.DefaultRepo,
		Tag:        "v0.9.1",
		Asset:      "loom-core_v0.9.1_linux_amd64.tar.gz",
		Companions: []string{"loomd"},
	}
	if len(inst.reqs) != 1 || !reflect.DeepEqual(inst.reqs[0], want) {
		t.Errorf("installer requests = %+v, want %+v", inst.reqs, want)
	}
	if got, _ := LookupEnv(cmd.Env, "PATH"); got != "/cache/loom-core/v0.9.1"+string(filepath.ListSeparator)+"/usr/bin" {
		t.Errorf("PATH mismatch: got %q", got)
	}
}

func TestLocate_DownloadError(t *testing.T) {
	inst := &fakeInstaller{err: &binary.InstallError{Dependency: "loom", Err: binary.ErrDownloadDisabled}}

	_, err := New(config.Defaults(), inst, linuxAMD64,
		WithLookPath(notFound),
		WithWellKnownDirs(),
	).Locate(context.Background())

	var ierr *binary.InstallError
	if !errors.As(err, &ierr) {
		t.Errorf("error = %v, want *binary.InstallError", err)
	}
}

func TestLocate_FallbackWhenDownloadDisabled(t *testing.T) {
	s := config.Defaults()
	s.Download.Enabled = false
	inst := &fakeInstaller{}

	cmd, err := New(s, inst, linuxAMD64,
		WithLookPath(notFound),
		WithWellKnownDirs(),
	).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if cmd.Source != SourceFallback || cmd.Path != "loom" {
		t.Errorf("got %s %q, want fallback loom", cmd.Source, cmd.Path)
	}
	if len(inst.reqs) != 0 {
		t.Errorf("installer should not be called, got %+v", inst.reqs)
	}
}

func TestCommand_Cmd(t *testing.T) {
	c := &Command{Path: "/usr/bin/loom", Args: []string{"proxy"}, Env: []string{"A=1"}}

	cmd := c.Cmd(context.Background())
	if want := []string{"/usr/bin/loom", "proxy"}; !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("Args mismatch: got %v, want %v", cmd.Args, want)
	}

	cmd = c.Cmd(context.Background(), "status", "--json")
	if want := []string{"/usr/bin/loom", "status", "--json"}; !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("Args mismatch: got %v, want %v", cmd.Args, want)
	}
	if !reflect.DeepEqual(cmd.Env, c.Env) {
		t.Errorf("Env mismatch: got %v, want %v", cmd.Env, c.Env)
	}
	if cmd.Cancel == nil || cmd.WaitDelay != StopGrace {
		t.Errorf("expected an interrupt with a %v grace period, got WaitDelay %v", StopGrace, cmd.WaitDelay)
	}
}

func TestCommand_CmdInterruptsOnCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shell scripts and SIGINT")
	}
	path := testutil.WriteExecutable(t, t.TempDir(), "loom", `trap 'echo stopping; exit 7' INT
echo ready
while :; do sleep 1; done`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := (&Command{Path: path}).Cmd(ctx)
	out, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sc := bufio.NewScanner(out)
	if !sc.Scan() || sc.Text() != "ready" {
		t.Fatalf("child did not start: %q", sc.Text())
	}
	cancel()

	var rest []string
	for sc.Scan() {
		rest = append(rest, sc.Text())
	}
	err = cmd.Wait()

	var ee *exec.ExitError
	if !errors.As(err, &ee) || ee.ExitCode() != 7 {
		t.Errorf("Wait() error = %v, want exit status 7 from the interrupt handler", err)
	}
	if !slices.Contains(rest, "stopping") {
		t.Errorf("interrupt handler did not run, output %v", rest)
	}
}

func TestDefaultWellKnownDirs(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	dirs := DefaultWellKnownDirs(linuxAMD64)
	want := []string{filepath.Join(env.Home, ".local", "bin"), "/usr/local/bin", "/opt/homebrew/bin"}
	if !reflect.DeepEqual(dirs, want) {
		t.Errorf("DefaultWellKnownDirs(linux) = %v, want %v", dirs, want)
	}

	dirs = DefaultWellKnownDirs(platform.Descriptor{OS: platform.OSWindows, Arch: platform.ArchAMD64})
	if len(dirs) != 1 {
		t.Errorf("DefaultWellKnownDirs(windows) = %v, want home dir only", dirs)
	}
}
