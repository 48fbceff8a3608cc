package config

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/crb2nu/loom-zed/internal/platform"
)

type stubDetector struct {
	info *platform.Info
	err  error
}

func (d *stubDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return d.info, d.err
}

var (
	linuxInfo = &platform.Info{
		Descriptor: platform.Descriptor{OS: platform.OSLinux, Arch: platform.ArchAMD64},
		RawOS:      "linux",
		RawArch:    "x86_64",
		Distro:     "ubuntu",
		Family:     platform.FamilyDebian,
		Version:    "22.04",
	}
	windowsInfo = &platform.Info{
		Descriptor: platform.Descriptor{OS: platform.OSWindows, Arch: platform.ArchAMD64},
		RawOS:      "windows",
		RawArch:    "x86_64",
	}
)

func newTestLoader(info *platform.Info) *Loader {
	return NewLoader(WithDetector(&stubDetector{info: info}), WithEnv(false))
}

func TestEvalLua_Document(t *testing.T) {
	code := `
		loom = {
			download = {
				enabled = true,
				tag = "v0.9.1",
				arch_aliases = { x86_64 = { "intel64" } },
			},
			command = {
				args = { "proxy", "--stdio" },
				env = { LOOM_LOG = "debug" },
			},
		}
	`

	doc, err := newTestLoader(linuxInfo).evalLua(context.Background(), code)
	if err != nil {
		t.Fatalf("evalLua() error = %v", err)
	}

	want := map[string]any{
		"download": map[string]any{
			"enabled":      true,
			"tag":          "v0.9.1",
			"arch_aliases": map[string]any{"x86_64": []any{"intel64"}},
		},
		"command": map[string]any{
			"args": []any{"proxy", "--stdio"},
			"env":  map[string]any{"LOOM_LOG": "debug"},
		},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("evalLua() mismatch:\ngot  %#v\nwant %#v", doc, want)
	}
}

func TestEvalLua_PlatformConditionals(t *testing.T) {
	code := `
		loom = {
			download = {
				asset = platform.when(platform.is_windows, "loom-core_v0.9.1_windows_amd64.zip"),
			},
			command = {
				args = {
					"proxy",
					platform.when(platform.is_linux, "--linux"),
					platform.distro and platform.distro.family or nil,
				},
			},
		}
	`

	tests := []struct {
		name      string
		info      *platform.Info
		wantAsset any
		wantArgs  []any
	}{
		{"linux", linuxInfo, nil, []any{"proxy", "--linux", "debian"}},
		{"windows", windowsInfo, "loom-core_v0.9.1_windows_amd64.zip", []any{"proxy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := newTestLoader(tt.info).evalLua(context.Background(), code)
			if err != nil {
				t.Fatalf("evalLua() error = %v", err)
			}
			download, _ := doc["download"].(map[string]any)
			if got := download["asset"]; got != tt.wantAsset {
				t.Errorf("asset mismatch: got %v, want %v", got, tt.wantAsset)
			}
			command := doc["command"].(map[string]any)
			if got := command["args"]; !reflect.DeepEqual(got, tt.wantArgs) {
				t.Errorf("args mismatch: got %v, want %v", got, tt.wantArgs)
			}
		})
	}
}

func TestEvalLua_NoLoomTable(t *testing.T) {
	doc, err := newTestLoader(linuxInfo).evalLua(context.Background(), `local x = 1`)
	if err != nil {
		t.Fatalf("evalLua() error = %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("doc = %v, want empty", doc)
	}
}

func TestEvalLua_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
	}{
		{"syntax error", `loom = {`, "Lua syntax error"},
		{"runtime error", `error("boom")`, "Lua syntax error"},
		{"loom not a table", `loom = "v0.9.1"`, "invalid 'loom' table"},
		{"loom is a list", `loom = { "a", "b" }`, "invalid 'loom' table"},
		{"function value", `loom = { command = { path = function() end } }`, "unsupported value in settings"},
		{"mixed table", `loom = { command = { args = { "proxy", x = 1 } } }`, "unsupported table in settings"},
		{"platform is read-only", `platform.os = "windows"`, "Lua syntax error"},
		{"sandboxed os", `loom = { command = { path = os.getenv("HOME") } }`, "Lua syntax error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(linuxInfo).evalLua(context.Background(), tt.code)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if perr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", perr.Message, tt.wantMsg)
			}
		})
	}
}

func TestEvalLua_InfiniteLoopAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader(linuxInfo).evalLua(ctx, `while true do end`)
	if err == nil {
		t.Fatal("expected error for cancelled evaluation")
	}
}

func TestEvalLua_DetectorError(t *testing.T) {
	l := NewLoader(WithDetector(&stubDetector{err: errors.New("no host")}), WithEnv(false))
	if _, err := l.evalLua(context.Background(), `loom = {}`); err == nil || !strings.Contains(err.Error(), "detect platform") {
		t.Errorf("error = %v, want detect platform failure", err)
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		verbose bool
		want    string
	}{
		{
			name: "parse error non-verbose",
			err: &ParseError{
				Message: "Lua syntax error",
				Detail:  "<string>:1: unexpected symbol near 'invalid'\nstack traceback:\n\t[G]: ?",
			},
			want: "Lua syntax error: <string>:1: unexpected symbol near 'invalid'",
		},
		{
			name: "parse error verbose",
			err: &ParseError{
				Message: "Lua syntax error",
				Detail:  "<string>:1: unexpected symbol near 'invalid'",
			},
			verbose: true,
			want:    "Lua syntax error\n\nDetails:\n<string>:1: unexpected symbol near 'invalid'",
		},
		{
			name: "other error",
			err:  errors.New("read settings: no such file"),
			want: "read settings: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatError(tt.err, tt.verbose); got != tt.want {
				t.Errorf("FormatError() = %q, want %q", got, tt.want)
			}
		})
	}
}
