package testutil_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/crb2nu/loom-zed/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	t.Setenv("LOOM_ZED_DOWNLOAD_TAG", "v9.9.9")
	t.Setenv("GITHUB_TOKEN", "ghp_secret")

	env := testutil.SetupTestEnv(t)

	for _, key := range []string{"LOOM_ZED_DOWNLOAD_TAG", "GITHUB_TOKEN"} {
		if v, ok := os.LookupEnv(key); ok {
			t.Errorf("%s still set to %q", key, v)
		}
	}
	if got := os.Getenv("HOME"); got != env.Home {
		t.Errorf("HOME mismatch: got %q, want %q", got, env.Home)
	}
	if got := os.Getenv("PATH"); got != env.Bin {
		t.Errorf("PATH mismatch: got %q, want %q", got, env.Bin)
	}
	for _, dir := range []string{env.Home, env.Cache, env.Config, env.Bin} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}

func TestWriteExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	path := testutil.WriteExecutable(t, dir, "loom", `echo "loom 0.9.1"`)

	if path != filepath.Join(dir, "loom") {
		t.Errorf("path mismatch: got %q", path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm()&0o111 == 0 {
		t.Errorf("mode %v is not executable", fi.Mode())
	}
}
