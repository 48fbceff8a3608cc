// Package testutil isolates tests from the user's real environment.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Home   string // HOME / USERPROFILE
	Cache  string // XDG_CACHE_HOME / LOCALAPPDATA
	Config string // XDG_CONFIG_HOME / APPDATA
	Bin    string // sole PATH entry
}

// SetupTestEnv points HOME, the user cache and config directories and PATH
// at fresh temporary directories and clears GITHUB_TOKEN and every
// LOOM_ZED_* variable, so tests never see the developer's loom installs,
// settings or credentials. Everything is restored when the test ends.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := Env{
		Home:   filepath.Join(tmpDir, "home"),
		Cache:  filepath.Join(tmpDir, "cache"),
		Config: filepath.Join(tmpDir, "config"),
		Bin:    filepath.Join(tmpDir, "bin"),
	}
	for _, dir := range []string{env.Home, env.Cache, env.Config, env.Bin} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("USERPROFILE", env.Home)
	t.Setenv("XDG_CACHE_HOME", env.Cache)
	t.Setenv("LOCALAPPDATA", env.Cache)
	t.Setenv("XDG_CONFIG_HOME", env.Config)
	t.Setenv("APPDATA", env.Config)
	t.Setenv("PATH", env.Bin)

	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if key == "GITHUB_TOKEN" || strings.HasPrefix(key, "LOOM_ZED_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	return env
}

// WriteExecutable writes a shell script named name into dir with mode 0755
// and returns its path.
func WriteExecutable(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write executable %s: %v", path, err)
	}
	return path
}
