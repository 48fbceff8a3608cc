package binary

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/crb2nu/loom-zed/internal/platform"
	"github.com/crb2nu/loom-zed/internal/release"
)

// DefaultLatestTTL is how long a latest resolution is trusted.
const DefaultLatestTTL = 6 * time.Hour

// Resolver turns an InstallRequest into a validated local executable,
// downloading and caching as needed. It is safe for concurrent use.
type Resolver struct {
	workdir         string
	platform        platform.Descriptor
	platformSet     bool
	tokens          platform.Tokens
	fetcher         release.Fetcher
	downloader      Downloader
	prober          Prober
	cache           *Cache
	clock           Clock
	logger          logr.Logger
	latestTTL       time.Duration
	downloadEnabled bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPlatform overrides host detection.
func WithPlatform(p platform.Descriptor) Option {
	return func(r *Resolver) {
		r.platform = p
		r.platformSet = true
	}
}

// WithTokens sets the platform naming table used for asset selection.
func WithTokens(t platform.Tokens) Option {
	return func(r *Resolver) {
		r.tokens = t
	}
}

// WithFetcher sets the release source.
func WithFetcher(f release.Fetcher) Option {
	return func(r *Resolver) {
		r.fetcher = f
	}
}

// WithDownloader sets the asset downloader.
func WithDownloader(d Downloader) Option {
	return func(r *Resolver) {
		r.downloader = d
	}
}

// WithProber sets the version prober. Pass NopProber{} to skip probing.
func WithProber(p Prober) Option {
	return func(r *Resolver) {
		r.prober = p
	}
}

// WithCache shares an install cache between resolvers.
func WithCache(c *Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithClock sets the time source for TTL checks.
func WithClock(c Clock) Option {
	return func(r *Resolver) {
		r.clock = c
	}
}

// WithLogger sets the logger. If not set, logging is disabled.
func WithLogger(logger logr.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithLatestTTL changes how long latest resolutions are reused.
func WithLatestTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.latestTTL = ttl
	}
}

// WithDownloadEnabled turns automatic downloads on or off. Explicit paths
// and warm cache entries keep working when off.
func WithDownloadEnabled(enabled bool) Option {
	return func(r *Resolver) {
		r.downloadEnabled = enabled
	}
}

// NewResolver creates a resolver installing under workdir.
func NewResolver(workdir string, opts ...Option) (*Resolver, error) {
	if workdir == "" {
		return nil, fmt.Errorf("workdir is required")
	}
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("resolve workdir: %w", err)
	}

	r := &Resolver{
		workdir:         abs,
		tokens:          platform.DefaultTokens(),
		clock:           RealClock{},
		logger:          logr.Discard(),
		latestTTL:       DefaultLatestTTL,
		downloadEnabled: true,
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.platformSet {
		info, err := platform.Current()
		if err != nil {
			return nil, fmt.Errorf("detect platform: %w", err)
		}
		r.platform = info.Descriptor
	}
	if r.cache == nil {
		r.cache = NewCache()
	}
	if r.fetcher == nil {
		r.fetcher = release.NewGitHubClient(release.WithLogger(r.logger))
	}
	if r.downloader == nil {
		r.downloader = NewHTTPDownloader(nil, release.DefaultPolicy(), r.logger)
	}
	if r.prober == nil {
		r.prober = NewExecProber()
	}
	return r, nil
}

// Platform returns the descriptor assets are selected for.
func (r *Resolver) Platform() platform.Descriptor {
	return r.platform
}

// Workdir returns the absolute install root.
func (r *Resolver) Workdir() string {
	return r.workdir
}

// EnsureInstall resolves req to an executable on disk.
//
// An explicit path short-circuits everything. A pinned tag is served from
// the cache forever once installed; latest is re-checked with the release
// source after the TTL. On any failure the cache and the final install
// path are left as they were.
func (r *Resolver) EnsureInstall(ctx context.Context, req InstallRequest) (*InstallRecord, error) {
	req.Tag = strings.TrimSpace(req.Tag)
	req.ExplicitPath = strings.TrimSpace(req.ExplicitPath)
	fail := func(tag, asset string, err error) (*InstallRecord, error) {
		return nil, &InstallError{Dependency: req.Dependency, Repo: req.Repo, Tag: tag, Asset: asset, Err: err}
	}

	if req.Dependency == "" {
		return fail(req.Tag, "", fmt.Errorf("dependency name is required"))
	}

	if req.ExplicitPath != "" {
		rec, err := r.explicit(req.ExplicitPath)
		if err != nil {
			return fail(req.Tag, "", err)
		}
		return rec, nil
	}

	now := r.clock.Now()
	pinned := req.Pinned()

	if rec, ok := r.lookup(req, now); ok {
		return rec, nil
	}

	if !r.downloadEnabled {
		return fail(req.Tag, "", ErrDownloadDisabled)
	}
	if req.Repo == "" {
		return fail(req.Tag, "", fmt.Errorf("repository is required"))
	}

	rel, err := r.fetcher.ResolveRelease(ctx, req.Repo, req.Tag)
	if err != nil {
		return fail(req.Tag, "", err)
	}
	if err := safePathElement(rel.Tag); err != nil {
		return fail(rel.Tag, "", fmt.Errorf("release tag: %w", err))
	}
	r.logger.Info("resolved release", "dependency", req.Dependency, "repo", req.Repo, "version", rel.Tag)

	key := CacheKey(req.Dependency, rel.Tag)
	if rec, ok := r.cache.Get(key); ok && r.fromRepo(rec, req.Repo) && r.usable(key, rec) {
		// Same concrete version as before: confirm it without reinstalling.
		if !pinned {
			rec.ResolvedAt = now
			rec.Latest = true
			r.cache.Put(key, rec)
			r.cache.SetAlias(LatestKey(req.Dependency, req.Repo), rel.Tag, now)
		}
		r.logger.V(1).Info("release already installed", "dependency", req.Dependency, "version", rel.Tag, "path", rec.Path)
		return &rec, nil
	}

	rec, ok := r.onDisk(ctx, req, rel.Tag)
	if !ok {
		var assetName string
		rec, assetName, err = r.install(ctx, req, rel)
		if err != nil {
			return fail(rel.Tag, assetName, err)
		}
	}
	rec.ResolvedAt = now
	rec.Latest = !pinned

	r.cache.Put(key, *rec)
	if !pinned {
		r.cache.SetAlias(LatestKey(req.Dependency, req.Repo), rel.Tag, now)
	}
	return rec, nil
}

// lookup serves req from the cache without touching the network.
func (r *Resolver) lookup(req InstallRequest, now time.Time) (*InstallRecord, bool) {
	version := req.Tag
	if !req.Pinned() {
		v, resolvedAt, ok := r.cache.Alias(LatestKey(req.Dependency, req.Repo))
		if !ok || now.Sub(resolvedAt) >= r.latestTTL {
			return nil, false
		}
		version = v
	}

	key := CacheKey(req.Dependency, version)
	rec, ok := r.cache.Get(key)
	if !ok || !r.fromRepo(rec, req.Repo) || !rec.FreshAt(now, r.latestTTL, req.Pinned()) || !r.usable(key, rec) {
		return nil, false
	}
	r.logger.V(1).Info("install cache hit", "dependency", req.Dependency, "version", rec.Version, "path", rec.Path)
	return &rec, true
}

// fromRepo reports whether rec was installed from repo. Cache keys name only
// the dependency and version, so a record from another repository must not
// answer for this one.
func (r *Resolver) fromRepo(rec InstallRecord, repo string) bool {
	return rec.BinDir == filepath.Join(r.workdir, release.Project(repo), rec.Version)
}

// usable re-validates a cached record against the filesystem and evicts it
// when the executable has gone away.
func (r *Resolver) usable(key string, rec InstallRecord) bool {
	if err := checkExecutable(rec.Path); err != nil {
		r.logger.V(1).Info("cached install no longer usable", "key", key, "error", err.Error())
		r.cache.Delete(key)
		return false
	}
	return true
}

func (r *Resolver) explicit(path string) (*InstallRecord, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := checkExecutable(abs); err != nil {
		return nil, err
	}
	return &InstallRecord{
		Path:       abs,
		BinDir:     filepath.Dir(abs),
		ResolvedAt: r.clock.Now(),
	}, nil
}

// onDisk returns the install of version left by an earlier process, so a
// cold cache does not mean a fresh download. An install that fails the
// executable check or the version probe is ignored and replaced.
func (r *Resolver) onDisk(ctx context.Context, req InstallRequest, version string) (*InstallRecord, bool) {
	project := release.Project(req.Repo)
	if safePathElement(project) != nil {
		return nil, false
	}
	installDir := filepath.Join(r.workdir, project, version)
	path := filepath.Join(installDir, r.platform.ExecutableName(req.Dependency))
	if err := checkExecutable(path); err != nil {
		return nil, false
	}

	reported, err := r.prober.Probe(ctx, path)
	if err != nil {
		r.logger.Info("existing install failed its version probe; reinstalling", "path", path, "error", err.Error())
		return nil, false
	}
	if !versionsAgree(version, reported) {
		r.logger.Info("installed executable reports a different version",
			"dependency", req.Dependency, "release", version, "reported", reported)
	}

	rec := &InstallRecord{
		Path:            path,
		Version:         version,
		BinDir:          installDir,
		ReportedVersion: reported,
	}
	for _, name := range req.Companions {
		cpath := filepath.Join(installDir, r.platform.ExecutableName(name))
		if checkExecutable(cpath) != nil {
			continue
		}
		if rec.Companions == nil {
			rec.Companions = make(map[string]string)
		}
		rec.Companions[name] = cpath
	}
	r.logger.V(1).Info("reusing install on disk", "dependency", req.Dependency, "version", version, "path", path)
	return rec, true
}

// install downloads rel's asset for this platform and commits it under
// {workdir}/{project}/{version}/.
func (r *Resolver) install(ctx context.Context, req InstallRequest, rel *release.Release) (*InstallRecord, string, error) {
	project := release.Project(req.Repo)
	if err := safePathElement(project); err != nil {
		return nil, "", fmt.Errorf("repository name: %w", err)
	}

	asset, err := SelectAsset(rel.Assets, SelectOptions{
		Project:  project,
		Version:  rel.Tag,
		Platform: r.platform,
		Override: req.Asset,
		Tokens:   r.tokens,
	})
	if err != nil {
		return nil, "", err
	}
	r.logger.Info("downloading release asset", "asset", asset.Name, "version", rel.Tag, "platform", r.platform.String())

	data, err := r.downloader.Download(ctx, asset)
	if err != nil {
		return nil, asset.Name, err
	}

	inspector := NewInspector(r.tokens)
	exeName := r.platform.ExecutableName(req.Dependency)
	payload, err := inspector.Extract(data, asset.Name, exeName)
	if err != nil {
		return nil, asset.Name, err
	}

	installDir := filepath.Join(r.workdir, project, rel.Tag)
	var staged []stagedFile
	committed := false
	defer func() {
		if !committed {
			discardStaged(staged)
		}
	}()

	mainTemp, err := stageExecutable(installDir, exeName, payload)
	if err != nil {
		return nil, asset.Name, err
	}
	staged = append(staged, stagedFile{name: req.Dependency, temp: mainTemp, final: filepath.Join(installDir, exeName)})

	companions := make(map[string]string)
	for _, name := range req.Companions {
		cname := r.platform.ExecutableName(name)
		body, err := inspector.ExtractCompanion(data, asset.Name, cname)
		if err != nil {
			var notFound *ExecutableNotFoundError
			if errors.As(err, &notFound) {
				r.logger.V(1).Info("companion not in archive", "companion", cname, "asset", asset.Name)
				continue
			}
			return nil, asset.Name, err
		}
		temp, err := stageExecutable(installDir, cname, body)
		if err != nil {
			return nil, asset.Name, err
		}
		final := filepath.Join(installDir, cname)
		staged = append(staged, stagedFile{name: name, temp: temp, final: final})
		companions[name] = final
	}

	if !r.platform.IsWindows() {
		for _, f := range staged {
			if err := setExecutable(f.temp); err != nil {
				return nil, asset.Name, err
			}
		}
	}

	reported, err := r.prober.Probe(ctx, mainTemp)
	if err != nil {
		return nil, asset.Name, err
	}
	if !versionsAgree(rel.Tag, reported) {
		r.logger.Info("installed executable reports a different version",
			"dependency", req.Dependency, "release", rel.Tag, "reported", reported)
	}

	unlock, err := acquireCommitLock(ctx, filepath.Join(r.workdir, ".locks"), project, rel.Tag)
	if err != nil {
		return nil, asset.Name, err
	}
	err = commitStaged(staged)
	if uerr := unlock(); uerr != nil {
		r.logger.V(1).Info("release commit lock", "error", uerr.Error())
	}
	if err != nil {
		return nil, asset.Name, err
	}
	committed = true

	finalPath := staged[0].final
	if err := checkExecutable(finalPath); err != nil {
		return nil, asset.Name, err
	}
	r.logger.Info("installed", "dependency", req.Dependency, "version", rel.Tag, "path", finalPath)

	rec := &InstallRecord{
		Path:            finalPath,
		Version:         rel.Tag,
		BinDir:          installDir,
		ReportedVersion: reported,
	}
	if len(companions) > 0 {
		rec.Companions = companions
	}
	return rec, asset.Name, nil
}
