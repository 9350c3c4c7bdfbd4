package orchestrator

import (
	"context"
	"fmt"

	"github.com/rancher/cherry-pick-replay/internal/git"
)

// recoverOperation handles an operation (or unmerged paths) left open by an
// earlier run or by the human. kind may be OperationNone when only conflicts
// remain. It returns true once the operation is closed and the run may go on, and
// false when the human abandons the run. The loop has no timeout.
func (o *Orchestrator) recoverOperation(ctx context.Context, repo Repository, kind git.OperationKind) bool {
	if kind == git.OperationNone {
		o.ui.Warn("Detected unresolved conflicts in the working tree.")
	} else {
		o.ui.Warn(fmt.Sprintf("Detected ongoing %s operation.", kind))
	}
	if o.log != nil {
		o.log.Warn("operation in progress", "operation", kind)
	}

	if lines, err := repo.StatusLines(ctx); err == nil && git.HasConflicts(lines) {
		o.ui.Failure("There are unresolved conflicts.")
		o.ui.List("Conflicted files:", git.ConflictedPaths(lines))
	}
	if hint := git.ContinueHint(kind); hint != "" {
		o.ui.Steps("Please resolve conflicts and run:", []string{hint})
	}

	for {
		choice, err := o.ui.Ask(ctx, "Continue with the process?", recoveryChoices)
		if err != nil {
			if o.log != nil {
				o.log.Warn("no answer at recovery prompt, abandoning run", "error", err)
			}
			return false
		}

		switch choice {
		case keyYes:
			if o.readyToProceed(ctx, repo) {
				o.ui.Success("Operation appears to be resolved. Continuing...")
				return true
			}
		case keyNo:
			o.ui.Info("Waiting for you to complete the operation...")
		case keyQuit:
			o.ui.Failure("Quitting. You can resume later.")
			return false
		}
	}
}

// readyToProceed re-checks the tree after the human claims to be done. The
// next commit is only applied on a clean tree with no operation open.
func (o *Orchestrator) readyToProceed(ctx context.Context, repo Repository) bool {
	lines, err := repo.StatusLines(ctx)
	if err != nil {
		o.ui.Failure(fmt.Sprintf("Could not read git status: %s", git.Diagnostic(err)))
		return false
	}
	if git.HasConflicts(lines) {
		o.ui.Failure("Conflicts still exist. Please resolve them first.")
		o.ui.List("Conflicted files:", git.ConflictedPaths(lines))
		return false
	}

	kind, err := repo.DetectOperation(ctx)
	if err != nil {
		o.ui.Failure(fmt.Sprintf("Could not inspect repository: %v", err))
		return false
	}
	if kind != git.OperationNone {
		o.ui.Failure(fmt.Sprintf("The %s is still in progress. Finish it with: %s", kind, git.ContinueHint(kind)))
		return false
	}
	return true
}
