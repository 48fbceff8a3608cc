package binary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// stagedFile is an executable written next to its final location but not
// yet renamed into place.
type stagedFile struct {
	name  string // logical name, e.g. "loomd"
	temp  string
	final string
}

// stageExecutable writes data to a uniquely named temporary file in dir.
// The file becomes visible under finalName only on commit.
func stageExecutable(dir, finalName string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create install dir: %w", err)
	}
	// The final name stays the suffix so the staged file can be run on
	// Windows, where the extension decides executability.
	temp := filepath.Join(dir, fmt.Sprintf(".%s-%s", uuid.NewString(), finalName))
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		os.Remove(temp)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	return temp, nil
}

// commitStaged renames every staged file into place, last to first, so the
// primary executable at index 0 is replaced only after its companions.
// Renames within one directory are atomic.
func commitStaged(files []stagedFile) error {
	for i := len(files) - 1; i >= 0; i-- {
		f := files[i]
		if err := os.Rename(f.temp, f.final); err != nil {
			return fmt.Errorf("commit %s: %w", f.name, err)
		}
	}
	return nil
}

// discardStaged removes temporary files that were not committed.
func discardStaged(files []stagedFile) {
	for _, f := range files {
		os.Remove(f.temp)
	}
}

// safePathElement rejects values that would escape the install directory.
func safePathElement(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\:`) {
		return fmt.Errorf("unsafe path element %q", s)
	}
	return nil
}
