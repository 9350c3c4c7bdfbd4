package commits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rancher/cherry-pick-replay/internal/git"
	gh "github.com/rancher/cherry-pick-replay/internal/github"
)

// availableTagLimit caps the tag names listed when a tag is missing.
const availableTagLimit = 10

// Repository is the subset of git.Repository used to derive commit lists.
type Repository interface {
	HeadCommit(ctx context.Context) (string, error)
	ResolveFull(ctx context.Context, ref string) (string, error)
	CommitInfo(ctx context.Context, ref string) (git.CommitInfo, error)
	RemoteExists(ctx context.Context, name string) bool
	AddRemote(ctx context.Context, name, url string) error
	FetchTags(ctx context.Context, remote string) error
	TagExists(ctx context.Context, tag string) bool
	LocalTags(ctx context.Context) ([]string, error)
	CommitsNotIn(ctx context.Context, rev, exclude string) ([]string, error)
}

// TagNotFoundError reports a tag missing after fetching, with the tag names
// that do exist for reference.
type TagNotFoundError struct {
	Ref       TagRef
	Available []string
}

func (e *TagNotFoundError) Error() string {
	return fmt.Sprintf("tag %q not found in %s/%s", e.Ref.Tag, e.Ref.Owner, e.Ref.Repo)
}

func (e *TagNotFoundError) Unwrap() error {
	return gh.ErrTagNotFound
}

// DiffResult describes the commits reachable from a remote tag but not from
// HEAD.
type DiffResult struct {
	Ref       TagRef
	Remote    string
	RemoteURL string
	Head      string
	TagCommit string
	// Commits are oldest first, ready to be replayed.
	Commits []git.CommitInfo
}

// Refs returns the full hashes of the result's commits, oldest first.
func (r DiffResult) Refs() []string {
	refs := make([]string, 0, len(r.Commits))
	for _, c := range r.Commits {
		refs = append(refs, c.Hash)
	}
	return refs
}

// Differ derives a commit list by diffing a remote tag against HEAD.
type Differ struct {
	repo Repository
	tags gh.TagClient
	log  *slog.Logger
}

// NewDiffer constructs a Differ. tags may be nil, in which case tag listings
// come from the local repository only.
func NewDiffer(repo Repository, tags gh.TagClient, logger *slog.Logger) *Differ {
	return &Differ{repo: repo, tags: tags, log: logger}
}

// Diff fetches ref's repository into a dedicated remote and lists the commits
// in the tag that HEAD does not contain.
func (d *Differ) Diff(ctx context.Context, ref TagRef) (DiffResult, error) {
	result := DiffResult{
		Ref:       ref,
		Remote:    ref.RemoteName(),
		RemoteURL: ref.RemoteURL(),
	}

	head, err := d.repo.HeadCommit(ctx)
	if err != nil {
		return DiffResult{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	result.Head = head

	if d.repo.RemoteExists(ctx, result.Remote) {
		if d.log != nil {
			d.log.Info("remote already exists", "remote", result.Remote)
		}
	} else {
		if d.log != nil {
			d.log.Info("adding remote", "remote", result.Remote, "url", result.RemoteURL)
		}
		if err := d.repo.AddRemote(ctx, result.Remote, result.RemoteURL); err != nil {
			return DiffResult{}, err
		}
	}

	if d.log != nil {
		d.log.Info("fetching tags", "remote", result.Remote)
	}
	if err := d.repo.FetchTags(ctx, result.Remote); err != nil {
		return DiffResult{}, err
	}

	if !d.repo.TagExists(ctx, ref.Tag) {
		return DiffResult{}, d.missingTag(ctx, ref)
	}

	tagCommit, err := d.repo.ResolveFull(ctx, ref.Tag)
	if err != nil {
		return DiffResult{}, fmt.Errorf("resolve tag %s: %w", ref.Tag, err)
	}
	result.TagCommit = tagCommit

	hashes, err := d.repo.CommitsNotIn(ctx, ref.Tag, "HEAD")
	if err != nil {
		return DiffResult{}, err
	}
	slices.Reverse(hashes)

	result.Commits = make([]git.CommitInfo, 0, len(hashes))
	for _, hash := range hashes {
		result.Commits = append(result.Commits, d.describe(ctx, hash))
	}

	if d.log != nil {
		d.log.Info("compared tag with HEAD", "tag", ref.Tag, "tag_commit", shortHash(tagCommit), "head", shortHash(head), "commits", len(result.Commits))
	}
	return result, nil
}

func (d *Differ) describe(ctx context.Context, hash string) git.CommitInfo {
	info, err := d.repo.CommitInfo(ctx, hash)
	if err != nil {
		if d.log != nil {
			d.log.Debug("commit info unavailable", "commit", hash, "error", err)
		}
		return git.CommitInfo{Hash: hash, Short: shortHash(hash), Author: "Unknown", Subject: "Unknown"}
	}
	return info
}

func (d *Differ) missingTag(ctx context.Context, ref TagRef) error {
	if d.tags != nil {
		sha, err := d.tags.TagSHA(ctx, ref.Owner, ref.Repo, ref.Tag)
		if err == nil {
			return fmt.Errorf("tag %q exists on %s/%s (%s) but was not fetched from remote %s", ref.Tag, ref.Owner, ref.Repo, shortHash(sha), ref.RemoteName())
		}
		if !errors.Is(err, gh.ErrTagNotFound) && d.log != nil {
			d.log.Warn("github tag lookup failed", "tag", ref.Tag, "error", err, "retryable", gh.IsRetryable(err))
		}
	}

	return &TagNotFoundError{Ref: ref, Available: d.availableTags(ctx, ref)}
}

func (d *Differ) availableTags(ctx context.Context, ref TagRef) []string {
	if d.tags != nil {
		names, err := d.tags.ListTags(ctx, ref.Owner, ref.Repo, availableTagLimit)
		if err == nil && len(names) > 0 {
			return names
		}
		if err != nil && d.log != nil {
			d.log.Warn("listing tags from github failed, using local tags", "error", err)
		}
	}

	local, err := d.repo.LocalTags(ctx)
	if err != nil {
		if d.log != nil {
			d.log.Warn("listing local tags failed", "error", err)
		}
		return nil
	}
	if len(local) > availableTagLimit {
		local = local[:availableTagLimit]
	}
	return local
}

func shortHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
