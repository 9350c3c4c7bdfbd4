package git

import (
	"context"
	"fmt"
	"strings"
)

func (r *shellRepository) HeadCommit(ctx context.Context) (string, error) {
	return r.ResolveFull(ctx, "HEAD")
}

func (r *shellRepository) RemoteExists(ctx context.Context, name string) bool {
	_, err := r.exec(ctx, "remote", "get-url", name)
	return err == nil
}

func (r *shellRepository) AddRemote(ctx context.Context, name, url string) error {
	if _, err := r.exec(ctx, "remote", "add", name, url); err != nil {
		return fmt.Errorf("git remote add %s: %w", name, err)
	}
	return nil
}

func (r *shellRepository) FetchTags(ctx context.Context, remote string) error {
	if _, err := r.exec(ctx, "fetch", remote, "--tags"); err != nil {
		return fmt.Errorf("git fetch %s --tags: %w", remote, err)
	}
	return nil
}

func (r *shellRepository) TagExists(ctx context.Context, tag string) bool {
	_, err := r.exec(ctx, "rev-parse", "--verify", "--quiet", "refs/tags/"+tag)
	return err == nil
}

func (r *shellRepository) LocalTags(ctx context.Context) ([]string, error) {
	out, err := r.exec(ctx, "tag", "-l")
	if err != nil {
		return nil, fmt.Errorf("git tag -l: %w", err)
	}
	return nonEmptyLines(out), nil
}

func (r *shellRepository) CommitsNotIn(ctx context.Context, rev, exclude string) ([]string, error) {
	out, err := r.exec(ctx, "log", "--format=%H", rev, "--not", exclude)
	if err != nil {
		return nil, fmt.Errorf("git log %s --not %s: %w", rev, exclude, err)
	}
	return nonEmptyLines(out), nil
}

func nonEmptyLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
