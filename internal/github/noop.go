package gh

import (
	"context"
	"fmt"
)

// NewNoopFactory returns a Factory that builds clients which never reach the
// network. Used for offline runs; callers fall back to local repository data.
func NewNoopFactory() Factory {
	return noopFactory{}
}

type noopFactory struct{}

func (noopFactory) New(ctx context.Context, token string) (TagClient, error) {
	return noopClient{}, nil
}

type noopClient struct{}

func (noopClient) ListTags(ctx context.Context, owner, repo string, limit int) ([]string, error) {
	return nil, nil
}

func (noopClient) TagSHA(ctx context.Context, owner, repo, tag string) (string, error) {
	return "", fmt.Errorf("%w: %s/%s@%s (offline)", ErrTagNotFound, owner, repo, tag)
}
