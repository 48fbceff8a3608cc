package binary

import (
	"maps"
	"time"
)

// InstallRequest describes the executable a caller needs.
type InstallRequest struct {
	// Dependency is the logical executable name, e.g. "loom". The platform
	// suffix (".exe") is added by the resolver.
	Dependency string
	// Repo is the GitHub repository publishing releases, "owner/name".
	Repo string
	// Tag pins a release. Empty means the latest release.
	Tag string
	// Asset overrides asset selection with an exact asset name.
	Asset string
	// ExplicitPath bypasses resolution entirely when set.
	ExplicitPath string
	// Companions are optional executables shipped in the same archive
	// (e.g. "loomd"). Missing companions are not an error.
	Companions []string
}

// Pinned reports whether the request names a concrete tag.
func (r InstallRequest) Pinned() bool {
	return r.Tag != ""
}

// InstallRecord is the result of a successful resolution.
type InstallRecord struct {
	Path    string // absolute path to the executable
	Version string // concrete release tag, empty for explicit paths
	BinDir  string // directory containing Path

	// ResolvedAt is when the release was last confirmed with the source.
	ResolvedAt time.Time
	// Latest is set when the record was produced by a latest lookup.
	Latest bool
	// ReportedVersion is what the executable printed for --version.
	ReportedVersion string
	// Companions maps companion names to their installed paths.
	Companions map[string]string
}

// FreshAt reports whether the record can be reused at now without asking
// the release source again. Pinned resolutions never expire; latest ones
// are fresh for ttl after ResolvedAt.
func (r *InstallRecord) FreshAt(now time.Time, ttl time.Duration, pinned bool) bool {
	if pinned {
		return true
	}
	return now.Sub(r.ResolvedAt) < ttl
}

// clone returns a deep copy so callers never share the cached map.
func (r InstallRecord) clone() InstallRecord {
	if r.Companions != nil {
		r.Companions = maps.Clone(r.Companions)
	}
	return r
}
