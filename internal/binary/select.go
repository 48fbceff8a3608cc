package binary

import (
	"fmt"
	"strings"

	"github.com/crb2nu/loom-zed/internal/platform"
	"github.com/crb2nu/loom-zed/internal/release"
)

// SelectOptions controls asset selection.
type SelectOptions struct {
	Project  string // repository basename, e.g. "loom-core"
	Version  string // concrete release tag
	Platform platform.Descriptor
	Override string // exact asset name, bypasses matching
	Tokens   platform.Tokens
}

// sideFileSuffixes mark assets that accompany a binary but are not one.
var sideFileSuffixes = []string{
	".sha256", ".sha256sum", ".sha512", ".md5", ".sig", ".asc", ".pem",
	".cert", ".sbom", ".spdx", ".json", ".txt", ".intoto.jsonl", ".bundle",
}

// CanonicalAssetName is the name loom-core's release pipeline gives the
// asset for p: {project}_{version}_{os}_{arch}.{zip|tar.gz}.
func CanonicalAssetName(project, version string, p platform.Descriptor, tokens platform.Tokens) string {
	return fmt.Sprintf("%s_%s_%s_%s.%s",
		project, version, tokens.OSToken(p.OS), tokens.ArchToken(p.Arch), p.ArchiveExt())
}

// SelectAsset picks the release asset for opts.Platform.
//
// An override must match exactly. Otherwise the canonical name wins; failing
// that, exactly one asset must mention an OS token of the platform and
// resolve to its architecture. Several heuristic matches are an
// AmbiguousAssetError rather than a guess.
func SelectAsset(assets []release.Asset, opts SelectOptions) (release.Asset, error) {
	names := make([]string, 0, len(assets))
	for _, a := range assets {
		names = append(names, a.Name)
	}

	if override := strings.TrimSpace(opts.Override); override != "" {
		for _, a := range assets {
			if a.Name == override {
				return a, nil
			}
		}
		return release.Asset{}, &AssetNotFoundError{
			Override:  override,
			Version:   opts.Version,
			Platform:  opts.Platform,
			Available: names,
		}
	}

	tokens := opts.Tokens
	if tokens.OS == nil {
		tokens = platform.DefaultTokens()
	}

	canonical := CanonicalAssetName(opts.Project, opts.Version, opts.Platform, tokens)
	for _, a := range assets {
		if a.Name == canonical {
			return a, nil
		}
	}

	var candidates []release.Asset
	for _, a := range assets {
		if isSideFile(a.Name) {
			continue
		}
		if !tokens.MatchOS(a.Name, opts.Platform.OS) {
			continue
		}
		if arch, ok := tokens.ArchOf(a.Name); !ok || arch != opts.Platform.Arch {
			continue
		}
		candidates = append(candidates, a)
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return release.Asset{}, &AssetNotFoundError{
			Version:   opts.Version,
			Platform:  opts.Platform,
			Available: names,
		}
	default:
		matched := make([]string, 0, len(candidates))
		for _, c := range candidates {
			matched = append(matched, c.Name)
		}
		return release.Asset{}, &AmbiguousAssetError{Platform: opts.Platform, Candidates: matched}
	}
}

func isSideFile(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "checksum") {
		return true
	}
	for _, suffix := range sideFileSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
