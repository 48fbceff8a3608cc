package binary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a contended commit lock is retried.
const lockRetryDelay = 100 * time.Millisecond

// acquireCommitLock takes an exclusive file lock for one installed version so
// that concurrent processes never interleave renames into the same
// directory. The returned function releases it.
func acquireCommitLock(ctx context.Context, locksDir, project, version string) (func() error, error) {
	if err := os.MkdirAll(locksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create locks directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.lock", project, version)
	name = strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(name)
	fl := flock.New(filepath.Join(locksDir, name))

	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire commit lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire commit lock: %v", ctx.Err())
	}
	return fl.Unlock, nil
}
