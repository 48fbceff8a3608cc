package release

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// DefaultDelays is the pause before each retry: 500ms, 1s, 2s.
var DefaultDelays = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy is a fixed retry schedule. One initial attempt is followed by one
// retry per entry in Delays.
type Policy struct {
	Delays []time.Duration
	Sleep  SleepFunc
}

// DefaultPolicy returns the schedule used against the GitHub API.
func DefaultPolicy() Policy {
	return Policy{Delays: DefaultDelays, Sleep: SleepContext}
}

// MaxAttempts is the total number of attempts including the first.
func (p Policy) MaxAttempts() int {
	return len(p.Delays) + 1
}

// Schedule returns the delay to wait before attempt (1-based). The first
// attempt and any attempt past the schedule return false.
func (p Policy) Schedule(attempt int) (time.Duration, bool) {
	if attempt < 2 || attempt-2 >= len(p.Delays) {
		return 0, false
	}
	return p.Delays[attempt-2], true
}

// Do calls fn until it succeeds, returns a permanent error, or the schedule
// runs out. It returns the number of attempts made alongside the last error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts(); attempt++ {
		if delay, ok := p.Schedule(attempt); ok {
			if err := sleep(ctx, delay); err != nil {
				return attempt - 1, err
			}
		}
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil || !IsTransient(lastErr) {
			return attempt, lastErr
		}
	}
	return p.MaxAttempts(), lastErr
}

// IsTransient reports whether err is worth retrying: network failures,
// server errors, rate limiting and malformed bodies.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var notFound *ReleaseNotFoundError
	var unauthorized *UnauthorizedError
	if errors.As(err, &notFound) || errors.As(err, &unauthorized) {
		return false
	}

	// Transport errors that do not implement net.Error (connection reset
	// while reading the body, unexpected EOF) are still network failures.
	var transportErr *transportError
	return errors.As(err, &transportErr)
}

// MarkTransient wraps err so IsTransient reports true for it. Use it for
// failures below the HTTP status layer, such as a body cut short.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transportError{err: err}
}

// transportError marks a failure below the HTTP status layer.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// SleepContext waits for d, returning early with ctx.Err() on cancellation.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
