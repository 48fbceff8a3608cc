// Package release looks up published releases of a GitHub repository.
//
// A Fetcher resolves either the latest release or a specific tag into a
// Release carrying the concrete tag name and the downloadable assets.
// GitHubClient is the production Fetcher; it retries transient failures on a
// fixed schedule (see Policy) and classifies permanent failures into typed
// errors so callers can react with errors.As:
//
//	rel, err := release.NewGitHubClient().ResolveRelease(ctx, "crb2nu/loom-core", "")
//	var nf *release.ReleaseNotFoundError
//	if errors.As(err, &nf) {
//		// pin a different tag
//	}
package release
