package binary

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/crb2nu/loom-zed/internal/platform"
)

var (
	// ErrDownloadDisabled is returned when resolution would need a download
	// but downloads are turned off.
	ErrDownloadDisabled = errors.New("automatic download is disabled; set download.enabled or command.path")

	// ErrNotExecutable is returned when a path exists but cannot be executed.
	ErrNotExecutable = errors.New("file is not executable")
)

// maxListedAssets caps the asset names quoted in AssetNotFoundError.
const maxListedAssets = 40

// InstallError wraps any failure of EnsureInstall with the request context.
type InstallError struct {
	Dependency string
	Repo       string
	Tag        string
	Asset      string
	Err        error
}

func (e *InstallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "install %s", e.Dependency)
	if e.Repo != "" {
		fmt.Fprintf(&b, " from %s", e.Repo)
	}
	if e.Tag != "" {
		fmt.Fprintf(&b, "@%s", e.Tag)
	}
	if e.Asset != "" {
		fmt.Fprintf(&b, " (asset %s)", e.Asset)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// AssetNotFoundError is returned when no release asset fits the platform,
// or when an override names an asset the release does not have.
type AssetNotFoundError struct {
	Override  string
	Version   string
	Platform  platform.Descriptor
	Available []string
}

func (e *AssetNotFoundError) Error() string {
	available := summarizeNames(e.Available, maxListedAssets)
	if e.Override != "" {
		return fmt.Sprintf("release %s has no asset named %q; available_assets=%s (hint: fix download.asset)",
			e.Version, e.Override, available)
	}
	return fmt.Sprintf("no matching release asset for version=%s platform=%s; available_assets=%s (hint: override with download.asset or pin download.tag)",
		e.Version, e.Platform, available)
}

// AmbiguousAssetError is returned when the heuristic matches several assets.
type AmbiguousAssetError struct {
	Platform   platform.Descriptor
	Candidates []string
}

func (e *AmbiguousAssetError) Error() string {
	return fmt.Sprintf("several release assets match %s: %s (hint: choose one with download.asset)",
		e.Platform, strings.Join(e.Candidates, ", "))
}

// DownloadFailedError is returned when an asset cannot be fetched.
type DownloadFailedError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadFailedError) Unwrap() error {
	return e.Err
}

// ArchiveUnrecognizedError is returned when the payload claims to be an
// archive but cannot be read as one.
type ArchiveUnrecognizedError struct {
	Hint string
	Err  error
}

func (e *ArchiveUnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized archive %q: %v", e.Hint, e.Err)
}

func (e *ArchiveUnrecognizedError) Unwrap() error {
	return e.Err
}

// ExecutableNotFoundError is returned when an archive has no matching entry.
type ExecutableNotFoundError struct {
	Name    string
	Archive string
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("executable %s not found in %s", e.Name, e.Archive)
}

// PermissionSetError is returned when the executable bit cannot be set.
type PermissionSetError struct {
	Path string
	Err  error
}

func (e *PermissionSetError) Error() string {
	return fmt.Sprintf("set executable permission on %s: %v", e.Path, e.Err)
}

func (e *PermissionSetError) Unwrap() error {
	return e.Err
}

// VersionProbeError is returned when the installed executable fails to run.
type VersionProbeError struct {
	Path   string
	Output string
	Err    error
}

func (e *VersionProbeError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("run %s --version: %v: %s", e.Path, e.Err, e.Output)
	}
	return fmt.Sprintf("run %s --version: %v", e.Path, e.Err)
}

func (e *VersionProbeError) Unwrap() error {
	return e.Err
}

// summarizeNames sorts names and joins at most limit of them, marking
// truncation with ",...".
func summarizeNames(names []string, limit int) string {
	if len(names) == 0 {
		return "(none)"
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	if len(sorted) > limit {
		return strings.Join(sorted[:limit], ",") + ",..."
	}
	return strings.Join(sorted, ",")
}
