package gh

import (
	"context"
	"errors"
)

// TagClient exposes the GitHub lookups used when deriving a commit list from a
// release tag.
type TagClient interface {
	// ListTags returns up to limit tag names, most recent first as GitHub
	// orders them.
	ListTags(ctx context.Context, owner, repo string, limit int) ([]string, error)
	// TagSHA returns the object the tag ref points at, or ErrTagNotFound.
	TagSHA(ctx context.Context, owner, repo, tag string) (string, error)
}

// Factory builds concrete GitHub clients (e.g., REST-backed).
type Factory interface {
	New(ctx context.Context, token string) (TagClient, error)
}

// ErrTagNotFound indicates the requested tag does not exist.
var ErrTagNotFound = errors.New("github: tag not found")

// retryableError marks an error that may succeed if the operation is retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsRetryable reports whether the supplied error resulted from a retryable GitHub
// API failure (for example, a transient network problem or rate-limited request).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var target *retryableError
	return errors.As(err, &target)
}
