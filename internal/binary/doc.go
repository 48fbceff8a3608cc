// Package binary resolves the loom executable (and its companions) to a
// validated path on disk, downloading and caching release assets as needed.
//
// # Resolution
//
// Resolver.EnsureInstall is the single entry point:
//
//	r, err := binary.NewResolver(workdir, binary.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	rec, err := r.EnsureInstall(ctx, binary.InstallRequest{
//	    Dependency: "loom",
//	    Repo:       "crb2nu/loom-core",
//	    Tag:        "v0.9.1", // empty for latest
//	    Companions: []string{"loomd"},
//	})
//
// An explicit path is checked and returned as-is. Otherwise the in-process
// Cache is consulted: pinned tags are reused forever, latest for
// DefaultLatestTTL. On a miss the release is fetched, an asset is chosen by
// SelectAsset, downloaded, unpacked by the Inspector, staged next to its
// final location, made executable, probed with --version, and renamed into
// {workdir}/{project}/{version}/ under a per-version file lock.
//
// # Errors
//
// Every failure is an *InstallError wrapping one of the typed errors in this
// package or in package release, so callers can use errors.As on either.
package binary
