package gitrepo

import (
	"fmt"
	"strings"
	"time"
)

// NotFoundError is returned when the repository, ref, or subtree does not
// exist on the remote.
type NotFoundError struct {
	Ref  RepoRef
	Path string // optional: the tree path being fetched, if any
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: path %q not found", e.Ref, e.Path)
	}
	return fmt.Sprintf("%s not found", e.Ref)
}

// NotAFileError is returned when a directory entry is used where blob
// content is required.
type NotAFileError struct {
	Path string
}

// Error implements the error interface.
func (e NotAFileError) Error() string {
	return fmt.Sprintf("%q is a directory, not a file", e.Path)
}

// RateLimitedError is returned when the API reports rate-limit exhaustion,
// including secondary (burstiness) limits. The client never retries
// internally; RetryAfter is advisory for the caller's backoff policy.
type RateLimitedError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by the API, retry after %s", e.RetryAfter)
	}
	return "rate limited by the API"
}

// TransportError wraps a network or unexpected API failure.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport failure.
func (e TransportError) Unwrap() error { return e.Err }

// MalformedResponseError is returned when an API payload does not parse
// into the expected tree or blob shape, or when a tree listing is
// internally inconsistent (duplicate or conflicting entry paths).
type MalformedResponseError struct {
	Reason string
	Err    error // optional decoding cause
}

// Error implements the error interface.
func (e MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed API response: %s: %v", e.Reason, e.Err)
	}
	return "malformed API response: " + e.Reason
}

// Unwrap returns the decoding cause, if any.
func (e MalformedResponseError) Unwrap() error { return e.Err }

// Failure records one file that could not be downloaded, with its cause.
type Failure struct {
	Path string
	Err  error
}

// DownloadError aggregates every per-file failure of a download operation.
// Files that downloaded successfully are reported separately on the result;
// the presence of this error means at least one selected file failed.
type DownloadError struct {
	Failures []Failure
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("download failed for %q: %v", e.Failures[0].Path, e.Failures[0].Err)
	}
	paths := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = f.Path
	}
	return fmt.Sprintf("download failed for %d files: %s", len(e.Failures), strings.Join(paths, ", "))
}

// Unwrap exposes the per-file causes to errors.Is / errors.As.
func (e *DownloadError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
