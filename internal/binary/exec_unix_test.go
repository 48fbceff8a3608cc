//go:build !windows

package binary

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckExecutable(t *testing.T) {
	dir := t.TempDir()

	exe := filepath.Join(dir, "loom")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := checkExecutable(exe); err != nil {
		t.Errorf("checkExecutable(executable) error = %v", err)
	}

	if err := checkExecutable(dir); !errors.Is(err, ErrNotExecutable) {
		t.Errorf("directory: expected ErrNotExecutable, got %v", err)
	}

	if err := checkExecutable(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: expected os.ErrNotExist, got %v", err)
	}

	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if os.Geteuid() != 0 {
		if err := checkExecutable(plain); !errors.Is(err, ErrNotExecutable) {
			t.Errorf("non-executable: expected ErrNotExecutable, got %v", err)
		}
	}

	if err := setExecutable(plain); err != nil {
		t.Fatalf("setExecutable() error = %v", err)
	}
	if err := checkExecutable(plain); err != nil {
		t.Errorf("after setExecutable: %v", err)
	}
}

func TestSetExecutable_MissingFile(t *testing.T) {
	err := setExecutable(filepath.Join(t.TempDir(), "missing"))
	var pse *PermissionSetError
	if !errors.As(err, &pse) {
		t.Errorf("expected PermissionSetError, got %T: %v", err, err)
	}
}
