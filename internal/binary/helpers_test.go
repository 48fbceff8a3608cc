package binary

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crb2nu/loom-zed/internal/release"
)

// archiveEntry is a file to place in a test archive.
type archiveEntry struct {
	name string
	body string
}

func makeTarGz(t *testing.T, entries ...archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, e := range entries {
		header := &tar.Header{
			Name:     e.name,
			Mode:     0755,
			Size:     int64(len(e.body)),
			Typeflag: tar.TypeReg,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", e.name, err)
		}
		if _, err := tarWriter.Write([]byte(e.body)); err != nil {
			t.Fatalf("failed to write content for %s: %v", e.name, err)
		}
	}
	if err := tarWriter.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

func makeZip(t *testing.T, entries ...archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zipWriter.Create(e.name)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", e.name, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}

func makeGzip(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := gzipWriter.Write([]byte(body)); err != nil {
		t.Fatalf("failed to write gzip body: %v", err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// fakeClock is a Clock that only moves when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeFetcher serves releases from memory and counts lookups.
type fakeFetcher struct {
	mu       sync.Mutex
	releases map[string]*release.Release // by tag
	latest   string
	err      error
	calls    atomic.Int32
}

func (f *fakeFetcher) ResolveRelease(ctx context.Context, repo, tag string) (*release.Release, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if tag == "" {
		tag = f.latest
	}
	rel, ok := f.releases[tag]
	if !ok {
		return nil, &release.ReleaseNotFoundError{Repo: repo, Tag: tag}
	}
	copied := *rel
	return &copied, nil
}

func (f *fakeFetcher) setLatest(tag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = tag
}

// fakeDownloader serves asset bytes by URL and counts downloads.
type fakeDownloader struct {
	blobs map[string][]byte
	err   error
	calls atomic.Int32
}

func (d *fakeDownloader) Download(ctx context.Context, asset release.Asset) ([]byte, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	body, ok := d.blobs[asset.DownloadURL]
	if !ok {
		return nil, &DownloadFailedError{URL: asset.DownloadURL, StatusCode: 404}
	}
	return body, nil
}

// fakeProber reports a fixed version.
type fakeProber struct {
	version string
	err     error
	calls   atomic.Int32
}

func (p *fakeProber) Probe(ctx context.Context, path string) (string, error) {
	p.calls.Add(1)
	return p.version, p.err
}

// loomRelease builds a release with canonical linux/darwin/windows assets
// whose URLs are served by the returned downloader.
func loomRelease(t *testing.T, tag string) (*release.Release, map[string][]byte) {
	t.Helper()

	blobs := make(map[string][]byte)
	rel := &release.Release{Tag: tag}
	for _, p := range []struct{ os, arch, ext string }{
		{"linux", "amd64", "tar.gz"},
		{"linux", "arm64", "tar.gz"},
		{"darwin", "arm64", "tar.gz"},
		{"windows", "amd64", "zip"},
	} {
		name := fmt.Sprintf("loom-core_%s_%s_%s.%s", tag, p.os, p.arch, p.ext)
		url := "https://example.invalid/" + name
		var body []byte
		if p.ext == "zip" {
			body = makeZip(t,
				archiveEntry{"loom.exe", "loom " + tag + " " + p.os + "/" + p.arch},
				archiveEntry{"loomd.exe", "loomd " + tag})
		} else {
			body = makeTarGz(t,
				archiveEntry{"loom-core/README.md", "readme"},
				archiveEntry{"loom-core/loom", "loom " + tag + " " + p.os + "/" + p.arch},
				archiveEntry{"loom-core/loomd", "loomd " + tag})
		}
		blobs[url] = body
		rel.Assets = append(rel.Assets, release.Asset{Name: name, DownloadURL: url})
	}
	rel.Assets = append(rel.Assets, release.Asset{Name: "checksums.txt", DownloadURL: "https://example.invalid/checksums.txt"})
	return rel, blobs
}
