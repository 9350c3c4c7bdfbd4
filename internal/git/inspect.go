package git

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const shortHashLength = 7

// CommitInfo describes a commit for progress lines and commit list files.
type CommitInfo struct {
	Hash    string
	Short   string
	Author  string
	Email   string
	Date    time.Time
	Subject string
}

// OneLine renders the commit like `git show --oneline --no-patch`.
func (c CommitInfo) OneLine() string {
	return strings.TrimSpace(c.Short + " " + c.Subject)
}

// Inspector answers ref and commit questions straight from the object
// database without spawning git.
type Inspector struct {
	repo *gogit.Repository
}

// OpenInspector opens the repository containing dir.
func OpenInspector(dir string) (*Inspector, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &Inspector{repo: repo}, nil
}

// NewInspector wraps an already opened go-git repository.
func NewInspector(repo *gogit.Repository) *Inspector {
	return &Inspector{repo: repo}
}

// Resolve resolves a branch, tag, full hash or abbreviated hash (>= 4 hex
// characters) to a commit hash.
func (i *Inspector) Resolve(ref string) (plumbing.Hash, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return plumbing.ZeroHash, errors.New("empty revision")
	}

	hash, err := i.repo.ResolveRevision(plumbing.Revision(ref))
	if err == nil {
		return *hash, nil
	}

	if len(ref) < 4 || len(ref) >= 40 || !isHex(ref) {
		return plumbing.ZeroHash, fmt.Errorf("resolve %s: %w", ref, err)
	}

	prefix := strings.ToLower(ref)
	iter, iterErr := i.repo.CommitObjects()
	if iterErr != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve %s: %w", ref, iterErr)
	}
	defer iter.Close()

	var match plumbing.Hash
	found, ambiguous := false, false
	forEachErr := iter.ForEach(func(c *object.Commit) error {
		if !strings.HasPrefix(c.Hash.String(), prefix) {
			return nil
		}
		if found {
			ambiguous = true
			return storer.ErrStop
		}
		match = c.Hash
		found = true
		return nil
	})
	if forEachErr != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve %s: %w", ref, forEachErr)
	}
	if ambiguous {
		return plumbing.ZeroHash, fmt.Errorf("resolve %s: ambiguous short hash", ref)
	}
	if !found {
		return plumbing.ZeroHash, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return match, nil
}

// CommitInfo loads the author and subject for ref.
func (i *Inspector) CommitInfo(ref string) (CommitInfo, error) {
	hash, err := i.Resolve(ref)
	if err != nil {
		return CommitInfo{}, err
	}

	commit, err := i.repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("load commit %s: %w", hash, err)
	}

	subject, _, _ := strings.Cut(strings.TrimSpace(commit.Message), "\n")
	full := commit.Hash.String()
	return CommitInfo{
		Hash:    full,
		Short:   full[:shortHashLength],
		Author:  commit.Author.Name,
		Email:   commit.Author.Email,
		Date:    commit.Author.When,
		Subject: strings.TrimSpace(subject),
	}, nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
