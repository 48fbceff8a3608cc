//go:build !windows

package binary

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// checkExecutable verifies path is a regular file the current user may execute.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w: not a regular file", path, ErrNotExecutable)
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrNotExecutable, err)
	}
	return nil
}

// setExecutable sets 0755 on path.
func setExecutable(path string) error {
	if err := os.Chmod(path, 0o755); err != nil {
		return &PermissionSetError{Path: path, Err: err}
	}
	return nil
}
