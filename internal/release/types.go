package release

import "context"

// Asset is a single downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        *int64 `json:"size,omitempty"`
}

// Release is a published release resolved to a concrete tag.
type Release struct {
	Tag    string  `json:"tag_name"`
	Assets []Asset `json:"assets"`
}

// AssetNames returns the names of all assets in publication order.
func (r *Release) AssetNames() []string {
	names := make([]string, 0, len(r.Assets))
	for _, a := range r.Assets {
		names = append(names, a.Name)
	}
	return names
}

// Fetcher resolves releases of a repository.
type Fetcher interface {
	// ResolveRelease returns the release tagged tag, or the latest release
	// when tag is empty. repo is "owner/name".
	ResolveRelease(ctx context.Context, repo, tag string) (*Release, error)
}
