package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"
	// DefaultUserAgent is sent with every API request.
	DefaultUserAgent = "loom-zed"
	// DefaultTimeout bounds a single metadata request.
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps the release JSON we are willing to read.
	maxBodySize = 8 << 20
)

// GitHubClient resolves releases through the GitHub REST API.
type GitHubClient struct {
	client    *http.Client
	baseURL   string
	token     string
	userAgent string
	policy    Policy
	logger    logr.Logger
}

// Option configures a GitHubClient.
type Option func(*GitHubClient)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *GitHubClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(base string) Option {
	return func(c *GitHubClient) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken overrides the token read from GITHUB_TOKEN. An empty token
// disables authentication.
func WithToken(token string) Option {
	return func(c *GitHubClient) {
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *GitHubClient) {
		c.userAgent = ua
	}
}

// WithPolicy replaces the retry policy.
func WithPolicy(p Policy) Option {
	return func(c *GitHubClient) {
		c.policy = p
	}
}

// WithLogger sets the logger. If not set, logging is disabled.
func WithLogger(logger logr.Logger) Option {
	return func(c *GitHubClient) {
		c.logger = logger
	}
}

// NewGitHubClient creates a client for api.github.com. GITHUB_TOKEN, when
// set, is sent as a bearer token.
func NewGitHubClient(opts ...Option) *GitHubClient {
	c := &GitHubClient{
		client:    &http.Client{Timeout: DefaultTimeout},
		baseURL:   DefaultBaseURL,
		token:     os.Getenv("GITHUB_TOKEN"),
		userAgent: DefaultUserAgent,
		policy:    DefaultPolicy(),
		logger:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveRelease implements Fetcher. An empty tag asks for the latest
// release; a tag is looked up directly without consulting latest.
func (c *GitHubClient) ResolveRelease(ctx context.Context, repo, tag string) (*Release, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, repo)
	if tag != "" {
		endpoint = fmt.Sprintf("%s/repos/%s/releases/tags/%s", c.baseURL, repo, url.PathEscape(tag))
	}

	var rel *Release
	attempts, err := c.policy.Do(ctx, func(ctx context.Context) error {
		r, err := c.fetch(ctx, endpoint, repo, tag)
		if err != nil {
			if IsTransient(err) {
				c.logger.V(1).Info("release lookup failed, will retry", "repo", repo, "tag", tag, "error", err.Error())
			}
			return err
		}
		rel = r
		return nil
	})
	if err == nil {
		c.logger.V(1).Info("resolved release", "repo", repo, "tag", rel.Tag, "assets", len(rel.Assets), "attempts", attempts)
		return rel, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("resolve release %s: %w", repo, ctx.Err())
	}
	if IsTransient(err) {
		return nil, &FetchFailedError{Repo: repo, Attempts: attempts, LastErr: err}
	}
	return nil, err
}

func (c *GitHubClient) fetch(ctx context.Context, endpoint, repo, tag string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("fetch release: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &ReleaseNotFoundError{Repo: repo, Tag: tag}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, &UnauthorizedError{Repo: repo, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("read response body: %w", err)}
	}

	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if rel.Tag == "" {
		return nil, &DecodeError{Err: errEmptyTag}
	}
	return &rel, nil
}

// validateRepo checks for the "owner/name" shape.
func validateRepo(repo string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid repository %q: expected owner/name", repo)
	}
	return nil
}

// Project returns the repository name without its owner: "loom-core" for
// "crb2nu/loom-core".
func Project(repo string) string {
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		return repo[i+1:]
	}
	return repo
}
