package git

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
)

type operationMarker struct {
	kind OperationKind
	path string
	head bool
}

// Markers are checked in order; git keeps at most one operation open.
var operationMarkers = []operationMarker{
	{kind: OperationCherryPick, path: "CHERRY_PICK_HEAD", head: true},
	{kind: OperationRebase, path: "rebase-merge"},
	{kind: OperationRebase, path: "rebase-apply"},
	{kind: OperationMerge, path: "MERGE_HEAD", head: true},
	{kind: OperationRevert, path: "REVERT_HEAD", head: true},
}

// DetectOperation inspects the marker files git maintains in its metadata
// directory. fs must be rooted at the git dir.
func DetectOperation(fs billy.Filesystem) (OperationKind, error) {
	for _, m := range operationMarkers {
		_, err := fs.Stat(m.path)
		if err == nil {
			return m.kind, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return OperationNone, fmt.Errorf("stat %s: %w", m.path, err)
		}
	}
	return OperationNone, nil
}

// OperationHead reads the commit recorded by the open operation's head file.
// Rebases do not record a single target and yield "".
func OperationHead(fs billy.Filesystem) (string, error) {
	for _, m := range operationMarkers {
		if !m.head {
			continue
		}
		f, err := fs.Open(m.path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("open %s: %w", m.path, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", m.path, err)
		}
		first, _, _ := strings.Cut(string(data), "\n")
		return strings.TrimSpace(first), nil
	}
	return "", nil
}

// ContinueHint returns the command a human runs to finish the operation.
func ContinueHint(kind OperationKind) string {
	switch kind {
	case OperationCherryPick:
		return "git cherry-pick --continue"
	case OperationRebase:
		return "git rebase --continue"
	case OperationMerge:
		return "git commit"
	case OperationRevert:
		return "git revert --continue"
	default:
		return ""
	}
}

// MatchesCommit reports whether head (a full hash) names the same commit as
// ref, which may be abbreviated.
func MatchesCommit(head, ref string) bool {
	head = strings.ToLower(strings.TrimSpace(head))
	ref = strings.ToLower(strings.TrimSpace(ref))
	if head == "" || len(ref) < 4 {
		return false
	}
	return strings.HasPrefix(head, ref)
}
