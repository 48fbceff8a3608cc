package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/crb2nu/loom-zed/internal/release"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "loom-zed"
	// maxDownloadSize bounds an asset held in memory.
	maxDownloadSize = 512 << 20
)

// Downloader fetches release asset bytes.
type Downloader interface {
	Download(ctx context.Context, asset release.Asset) ([]byte, error)
}

// HTTPDownloader downloads assets over HTTP, retrying transient failures
// on the same fixed schedule as release lookups.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	policy    release.Policy
	logger    logr.Logger
}

// NewHTTPDownloader creates a downloader. A nil client gets a default one
// with DefaultTimeout.
func NewHTTPDownloader(client *http.Client, policy release.Policy, logger logr.Logger) *HTTPDownloader {
	if client == nil {
		client = &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	return &HTTPDownloader{
		client:    client,
		userAgent: DefaultUserAgent,
		policy:    policy,
		logger:    logger,
	}
}

// Download fetches asset.DownloadURL. When the asset advertises a size the
// body must match it exactly.
func (d *HTTPDownloader) Download(ctx context.Context, asset release.Asset) ([]byte, error) {
	var data []byte
	attempts, err := d.policy.Do(ctx, func(ctx context.Context) error {
		body, err := d.downloadOnce(ctx, asset)
		if err != nil {
			d.logger.V(1).Info("asset download attempt failed", "asset", asset.Name, "error", err.Error())
			return err
		}
		data = body
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, &DownloadFailedError{URL: asset.DownloadURL, Err: ctx.Err()}
		}
		var de *DownloadFailedError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, &DownloadFailedError{URL: asset.DownloadURL, Err: fmt.Errorf("after %d attempts: %w", attempts, err)}
	}
	return data, nil
}

// downloadOnce performs a single download attempt
func (d *HTTPDownloader) downloadOnce(ctx context.Context, asset release.Asset) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.DownloadURL, nil)
	if err != nil {
		return nil, &DownloadFailedError{URL: asset.DownloadURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, release.MarkTransient(fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &release.StatusError{StatusCode: resp.StatusCode, URL: asset.DownloadURL}
		if release.IsTransient(statusErr) {
			return nil, statusErr
		}
		return nil, &DownloadFailedError{URL: asset.DownloadURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, release.MarkTransient(fmt.Errorf("copy response body: %w", err))
	}
	if len(body) > maxDownloadSize {
		return nil, &DownloadFailedError{URL: asset.DownloadURL, Err: fmt.Errorf("asset exceeds %d bytes", maxDownloadSize)}
	}
	if asset.Size != nil && int64(len(body)) != *asset.Size {
		return nil, release.MarkTransient(fmt.Errorf("truncated download: got %d bytes, want %d", len(body), *asset.Size))
	}
	return body, nil
}
