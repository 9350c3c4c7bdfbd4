package orchestrator

import (
	"context"
	"fmt"

	"github.com/rancher/cherry-pick-replay/internal/git"
)

type mediationAction int

const (
	mediationResolved mediationAction = iota
	mediationContinueFailed
	mediationSkip
	mediationQuit
)

type mediation struct {
	action mediationAction
	detail string
}

// mediate runs the conflict decision loop for the commit being applied.
func (o *Orchestrator) mediate(ctx context.Context, repo Repository, short string) mediation {
	o.ui.Header(fmt.Sprintf("Cherry-pick conflict detected for commit: %s", short))
	o.showConflicts(ctx, repo)
	o.ui.Steps("Instructions:", []string{
		"Resolve the conflicts in the files listed above",
		"Stage the resolved files with: git add <file>",
		"Complete the cherry-pick with: git cherry-pick --continue (or choose y below)",
		"Come back here and type your choice",
	})

	for {
		choice, err := o.ui.Ask(ctx, "What would you like to do?", mediatorChoices)
		if err != nil {
			if o.log != nil {
				o.log.Warn("no answer at conflict prompt, quitting", "commit", short, "error", err)
			}
			return mediation{action: mediationQuit}
		}

		switch choice {
		case keyYes:
			if m, done := o.tryContinue(ctx, repo); done {
				return m
			}
		case keyNo:
			o.ui.Info("Take your time to resolve the conflicts...")
		case keySkip:
			return mediation{action: mediationSkip}
		case keyQuit:
			return mediation{action: mediationQuit}
		}
	}
}

// tryContinue finishes the operation once no conflicts remain. done is false
// when the human has to keep resolving.
func (o *Orchestrator) tryContinue(ctx context.Context, repo Repository) (mediation, bool) {
	lines, err := repo.StatusLines(ctx)
	if err != nil {
		o.ui.Failure(fmt.Sprintf("Could not read git status: %s", git.Diagnostic(err)))
		return mediation{}, false
	}
	if git.HasConflicts(lines) {
		o.ui.Failure("Conflicts still exist. Please resolve them first.")
		o.ui.List("Conflicted files:", git.ConflictedPaths(lines))
		return mediation{}, false
	}

	kind, err := repo.DetectOperation(ctx)
	if err != nil {
		return mediation{action: mediationContinueFailed, detail: err.Error()}, true
	}
	if kind == git.OperationNone {
		// Already continued by hand.
		return mediation{action: mediationResolved}, true
	}

	if err := repo.ContinueOperation(ctx); err != nil {
		return mediation{action: mediationContinueFailed, detail: git.Diagnostic(err)}, true
	}
	return mediation{action: mediationResolved}, true
}

func (o *Orchestrator) showConflicts(ctx context.Context, repo Repository) {
	lines, err := repo.StatusLines(ctx)
	if err != nil {
		o.ui.Failure(fmt.Sprintf("Could not read git status: %s", git.Diagnostic(err)))
		return
	}
	if o.cfg.ShowStatus && len(lines) > 0 {
		o.ui.Info("Current git status:")
		for _, line := range lines {
			o.ui.Detail(line)
		}
	}
	o.ui.List("Conflicted files:", git.ConflictedPaths(lines))
}
