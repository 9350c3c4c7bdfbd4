package git

import (
	"context"
	"errors"
)

// OperationKind names the multi-step git operation currently open in a repository.
type OperationKind string

const (
	OperationNone       OperationKind = "none"
	OperationCherryPick OperationKind = "cherry-pick"
	OperationRebase     OperationKind = "rebase"
	OperationMerge      OperationKind = "merge"
	OperationRevert     OperationKind = "revert"
)

// ErrNotRepository indicates the directory is not inside a git work tree.
var ErrNotRepository = errors.New("git: not a git repository")

// ErrNoOperation is returned when continue is requested but nothing is open.
var ErrNoOperation = errors.New("git: no operation in progress")

// Executor opens repositories used for cherry-pick replay.
type Executor interface {
	Open(ctx context.Context, dir string) (Repository, error)
}

// Probe exposes the read-only queries the orchestrator relies on. None of the
// methods mutate the work tree or the index.
type Probe interface {
	// DetectOperation reports which operation, if any, is open. It fails only
	// when the repository metadata cannot be read.
	DetectOperation(ctx context.Context) (OperationKind, error)
	// OperationHead returns the commit recorded as the target of the open
	// operation (CHERRY_PICK_HEAD, REVERT_HEAD, MERGE_HEAD), or "" when none.
	OperationHead(ctx context.Context) (string, error)
	// StatusLines returns porcelain v1 status, one entry per line.
	StatusLines(ctx context.Context) ([]string, error)
	// ResolveFull resolves a reference to its full commit hash.
	ResolveFull(ctx context.Context, ref string) (string, error)
	// ResolveShort is best-effort and returns ref unchanged on failure.
	ResolveShort(ctx context.Context, ref string) string
	// CommitInfo describes a commit for display.
	CommitInfo(ctx context.Context, ref string) (CommitInfo, error)
}

// Mutator exposes the mutations invoked while replaying commits. Failures are
// returned as *GitError so callers can surface the tool's diagnostic text.
type Mutator interface {
	ApplyCommit(ctx context.Context, ref string) error
	ContinueOperation(ctx context.Context) error
	AbortOperation(ctx context.Context) error
}

// History exposes the remote and log queries used to derive commit lists.
type History interface {
	HeadCommit(ctx context.Context) (string, error)
	RemoteExists(ctx context.Context, name string) bool
	AddRemote(ctx context.Context, name, url string) error
	FetchTags(ctx context.Context, remote string) error
	TagExists(ctx context.Context, tag string) bool
	LocalTags(ctx context.Context) ([]string, error)
	// CommitsNotIn lists commits reachable from rev but not from exclude,
	// newest first as git log reports them.
	CommitsNotIn(ctx context.Context, rev, exclude string) ([]string, error)
}

// Repository is an opened work tree.
type Repository interface {
	Probe
	Mutator
	History
	Dir() string
}
