package binary

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// DefaultProbeTimeout bounds a --version run.
const DefaultProbeTimeout = 10 * time.Second

// RunResult holds captured process output.
type RunResult struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes a command and captures its output.
type Runner interface {
	Run(ctx context.Context, command string, args []string) (RunResult, error)
}

// CmdRunner runs commands with os/exec.
type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	return RunResult{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}, err
}

var _ Runner = CmdRunner{}

// Prober asks an installed executable for its version.
type Prober interface {
	// Probe returns the version the executable reports, or "" when its
	// output carries none. An error means the executable did not run.
	Probe(ctx context.Context, path string) (string, error)
}

// ExecProber runs "<path> --version".
type ExecProber struct {
	Runner  Runner
	Timeout time.Duration
}

// NewExecProber returns a prober using os/exec.
func NewExecProber() *ExecProber {
	return &ExecProber{Runner: CmdRunner{}, Timeout: DefaultProbeTimeout}
}

func (p *ExecProber) Probe(ctx context.Context, path string) (string, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := p.Runner
	if runner == nil {
		runner = CmdRunner{}
	}
	result, err := runner.Run(ctx, path, []string{"--version"})
	if err != nil {
		return "", &VersionProbeError{
			Path:   path,
			Output: strings.TrimSpace(string(result.Stderr)),
			Err:    err,
		}
	}

	if v := ParseReportedVersion(string(result.Stdout)); v != "" {
		return v, nil
	}
	return ParseReportedVersion(string(result.Stderr)), nil
}

// NopProber skips the version check.
type NopProber struct{}

func (NopProber) Probe(context.Context, string) (string, error) { return "", nil }

// ParseReportedVersion returns the first whitespace-separated field of out
// that parses as a semantic version, in canonical form without a "v".
// "loom 0.9.1 (abc123)" yields "0.9.1".
func ParseReportedVersion(out string) string {
	for _, field := range strings.Fields(out) {
		field = strings.Trim(field, "(),;:")
		if field == "" || !(field[0] == 'v' || (field[0] >= '0' && field[0] <= '9')) {
			continue
		}
		if !strings.Contains(field, ".") {
			continue
		}
		if v, err := semver.NewVersion(field); err == nil {
			return v.String()
		}
	}
	return ""
}

// versionsAgree reports whether a release tag and a reported version name
// the same semantic version. Tags that are not versions always agree.
func versionsAgree(tag, reported string) bool {
	want, err := semver.NewVersion(tag)
	if err != nil || reported == "" {
		return true
	}
	got, err := semver.NewVersion(reported)
	if err != nil {
		return true
	}
	return want.Equal(got)
}

