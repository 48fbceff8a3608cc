package release

import (
	"errors"
	"fmt"
)

// fetchHint is appended to fetch failures that retrying will not fix.
const fetchHint = "check connectivity or pin a version with download.tag"

// ReleaseNotFoundError is returned when the repository or tag does not exist.
type ReleaseNotFoundError struct {
	Repo string
	Tag  string // empty for the latest release
}

func (e *ReleaseNotFoundError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("no published release found for %s", e.Repo)
	}
	return fmt.Sprintf("release %s not found for %s", e.Tag, e.Repo)
}

// UnauthorizedError is returned on 401/403 responses.
type UnauthorizedError struct {
	Repo       string
	StatusCode int
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("GitHub API denied access to %s (status %d); set GITHUB_TOKEN or check its scopes",
		e.Repo, e.StatusCode)
}

// FetchFailedError is returned when every attempt failed with a transient error.
type FetchFailedError struct {
	Repo     string
	Attempts int
	LastErr  error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch release metadata for %s failed after %d attempts: %v; %s",
		e.Repo, e.Attempts, e.LastErr, fetchHint)
}

func (e *FetchFailedError) Unwrap() error {
	return e.LastErr
}

// StatusError is a non-success HTTP status that is not classified more
// precisely. 5xx and 429 are transient.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GitHub API returned status %d for %s", e.StatusCode, e.URL)
}

// DecodeError wraps a malformed response body.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("parse release JSON: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// errEmptyTag is returned when the API answers with a release lacking a tag.
var errEmptyTag = errors.New("release has no tag_name")
