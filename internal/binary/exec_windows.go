//go:build windows

package binary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var executableExts = map[string]bool{".exe": true, ".com": true, ".bat": true, ".cmd": true}

// checkExecutable verifies path is a regular file with an executable extension.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w: not a regular file", path, ErrNotExecutable)
	}
	if !executableExts[strings.ToLower(filepath.Ext(path))] {
		return fmt.Errorf("%s: %w: missing executable extension", path, ErrNotExecutable)
	}
	return nil
}

// setExecutable is a no-op: Windows has no executable bit.
func setExecutable(path string) error {
	return nil
}
