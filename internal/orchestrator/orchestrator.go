package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rancher/cherry-pick-replay/internal/commits"
	"github.com/rancher/cherry-pick-replay/internal/git"
)

// Repository is the version-control surface the orchestrator drives.
type Repository interface {
	git.Probe
	git.Mutator
}

// Orchestrator replays a commit queue one commit at a time, pausing for the
// human whenever git reports a conflict or an operation is left open.
type Orchestrator struct {
	cfg Config
	ui  UI
	log *slog.Logger
}

// StopReason explains why a run ended.
type StopReason string

const (
	StopCompleted   StopReason = "completed"
	StopAbandoned   StopReason = "abandoned"
	StopQuit        StopReason = "quit"
	StopInterrupted StopReason = "interrupted"
)

// Result captures the outcome of a single orchestrator run.
type Result struct {
	Summary
	Stop StopReason `json:"stop"`
	// Offset is the number of queued commits skipped by start-from.
	Offset int `json:"offset"`
	// StoppedAt is the commit that was pending when the run stopped early.
	StoppedAt string `json:"stopped_at,omitempty"`
}

// NotAttempted is the number of commits left untouched by an early stop.
func (r Result) NotAttempted() int {
	return r.Total - r.Succeeded - r.Skipped - r.Failed
}

// New returns a configured Orchestrator instance.
func New(cfg Config, ui UI, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, ui: ui, log: logger}
}

// pickState is the per-commit state reached after an apply attempt.
type pickState string

const (
	stateApplied                 pickState = "applied"
	stateContinuingAfterConflict pickState = "continuing_after_conflict"
	stateAwaitingResolution      pickState = "awaiting_resolution"
	stateFailedOther             pickState = "failed_other"
)

// observation is what the probe reports after a failed apply.
type observation struct {
	operation git.OperationKind
	head      string
	conflicts bool
}

// classify maps an apply result and the probe's view of the tree to the next
// per-commit state. target is the attempted commit, ideally its full hash.
func classify(applyErr error, target string, obs observation) pickState {
	switch {
	case applyErr == nil:
		return stateApplied
	case obs.conflicts:
		return stateAwaitingResolution
	case obs.operation == git.OperationCherryPick && git.MatchesCommit(obs.head, target):
		return stateContinuingAfterConflict
	default:
		return stateFailedOther
	}
}

// Run processes the pending part of queue in order. The returned error is
// non-nil only for fatal conditions: the repository metadata cannot be read
// or the ledger bookkeeping failed. Early stops requested by the human or by
// cancellation are reported through Result.Stop.
func (o *Orchestrator) Run(ctx context.Context, repo Repository, queue commits.Queue) (Result, error) {
	pending := queue.Pending()
	ledger := NewLedger(len(pending))

	finish := func(stop StopReason, stoppedAt string) Result {
		if stop != StopCompleted && ctx.Err() != nil {
			stop = StopInterrupted
		}
		res := Result{Summary: ledger.Summary(), Stop: stop, Offset: queue.Offset, StoppedAt: stoppedAt}
		o.reportSummary(res)
		return res
	}

	o.ui.Info(fmt.Sprintf("Found %d commits to cherry-pick", len(pending)))
	if queue.Offset > 0 && queue.Offset < len(queue.Refs) {
		o.ui.Warn(fmt.Sprintf("Starting from commit: %s", queue.Refs[queue.Offset]))
	}
	if o.cfg.DryRun {
		o.ui.Warn("Running in DRY RUN mode - no changes will be made")
	}
	if o.log != nil {
		o.log.Info("starting replay", "commits", len(pending), "offset", queue.Offset, "dry_run", o.cfg.DryRun)
	}

	for i, ref := range pending {
		if ctx.Err() != nil {
			return finish(StopInterrupted, ref), nil
		}

		o.ui.Progress(i+1, len(pending))

		kind, err := repo.DetectOperation(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("detect operation: %w", err)
		}
		if kind != git.OperationNone || o.hasConflicts(ctx, repo) {
			if !o.recoverOperation(ctx, repo, kind) {
				return finish(StopAbandoned, ref), nil
			}
		}

		outcome, quit := o.pickSafely(ctx, repo, ref)
		if quit {
			if ctx.Err() == nil {
				o.ui.Failure("Process aborted by user.")
			}
			return finish(StopQuit, ref), nil
		}

		outcome.Index = i
		if err := ledger.Record(outcome); err != nil {
			return Result{}, err
		}
		if o.log != nil {
			o.log.Info("commit processed", "commit", outcome.Short, "outcome", outcome.Kind, "reason", outcome.Reason)
		}
	}

	return finish(StopCompleted, ""), nil
}

// pickSafely runs pick and turns a panic into an internal-error outcome for
// the commit being processed.
func (o *Orchestrator) pickSafely(ctx context.Context, repo Repository, ref string) (outcome Outcome, quit bool) {
	defer func() {
		if r := recover(); r != nil {
			if o.log != nil {
				o.log.Error("unexpected failure while processing commit", "commit", ref, "panic", r)
			}
			o.ui.Failure(fmt.Sprintf("Internal error: %v", r))
			outcome = failed(ref, ref, ReasonInternalError, fmt.Sprint(r))
			quit = false
		}
	}()
	return o.pick(ctx, repo, ref)
}

func (o *Orchestrator) pick(ctx context.Context, repo Repository, ref string) (Outcome, bool) {
	short := repo.ResolveShort(ctx, ref)
	o.describe(ctx, repo, ref)

	applyErr := repo.ApplyCommit(ctx, ref)
	if applyErr == nil {
		if o.cfg.DryRun {
			o.ui.Success("Would cherry-pick")
		} else {
			o.ui.Success("Success")
		}
		return Outcome{Ref: ref, Short: short, Kind: OutcomeSucceeded}, false
	}

	if o.log != nil {
		o.log.Debug("cherry-pick failed", "commit", short, "error", applyErr)
	}

	target := ref
	if full, err := repo.ResolveFull(ctx, ref); err == nil {
		target = full
	}

	obs, err := o.observe(ctx, repo)
	if err != nil {
		o.ui.Failure(fmt.Sprintf("Could not inspect repository after cherry-pick: %v", err))
		return failed(ref, short, ReasonInternalError, err.Error()), false
	}

	switch classify(applyErr, target, obs) {
	case stateContinuingAfterConflict:
		o.ui.Success("Ready to continue")
		if err := repo.ContinueOperation(ctx); err != nil {
			diag := git.Diagnostic(err)
			o.ui.Failure("Failed to continue: " + firstLine(diag))
			o.abort(ctx, repo, short)
			return failed(ref, short, ReasonContinueError, diag), false
		}
		o.ui.Success("Continued successfully")
		return Outcome{Ref: ref, Short: short, Kind: OutcomeSucceededAfterResume}, false

	case stateAwaitingResolution:
		o.ui.Warn("Conflicts detected")
		m := o.mediate(ctx, repo, short)
		switch m.action {
		case mediationResolved:
			o.ui.Success("Conflicts resolved")
			return Outcome{Ref: ref, Short: short, Kind: OutcomeSucceeded}, false
		case mediationContinueFailed:
			o.ui.Failure("Failed to continue: " + firstLine(m.detail))
			return failed(ref, short, ReasonContinueError, m.detail), false
		case mediationSkip:
			o.ui.Skipped("Skipped")
			o.abort(ctx, repo, short)
			return Outcome{Ref: ref, Short: short, Kind: OutcomeSkipped}, false
		default:
			return Outcome{}, true
		}

	default:
		diag := git.Diagnostic(applyErr)
		o.ui.Failure("Failed: " + firstLine(diag))
		return failed(ref, short, ReasonApplyError, diag), false
	}
}

func (o *Orchestrator) hasConflicts(ctx context.Context, repo Repository) bool {
	lines, err := repo.StatusLines(ctx)
	if err != nil {
		if o.log != nil {
			o.log.Warn("could not read status before cherry-pick", "error", err)
		}
		return false
	}
	return git.HasConflicts(lines)
}

func (o *Orchestrator) observe(ctx context.Context, repo Repository) (observation, error) {
	kind, err := repo.DetectOperation(ctx)
	if err != nil {
		return observation{}, fmt.Errorf("detect operation: %w", err)
	}
	lines, err := repo.StatusLines(ctx)
	if err != nil {
		return observation{}, fmt.Errorf("read status: %w", err)
	}
	head, err := repo.OperationHead(ctx)
	if err != nil {
		return observation{}, fmt.Errorf("read operation head: %w", err)
	}
	return observation{operation: kind, head: head, conflicts: git.HasConflicts(lines)}, nil
}

func (o *Orchestrator) describe(ctx context.Context, repo Repository, ref string) {
	if o.cfg.DryRun {
		o.ui.Info(fmt.Sprintf("[DRY RUN] Would cherry-pick: %s", ref))
	} else {
		o.ui.Info(fmt.Sprintf("Cherry-picking commit: %s", ref))
	}

	info, err := repo.CommitInfo(ctx, ref)
	if err != nil {
		o.ui.Detail("(could not retrieve commit info)")
		return
	}
	o.ui.Detail(info.OneLine())
}

// abort closes the open operation. A failure is surfaced but not retried;
// the recovery prompt catches whatever is left before the next commit.
func (o *Orchestrator) abort(ctx context.Context, repo Repository, short string) {
	if err := repo.AbortOperation(ctx); err != nil {
		o.ui.Failure("Failed to abort: " + firstLine(git.Diagnostic(err)))
		if o.log != nil {
			o.log.Warn("failed to abort cherry-pick", "commit", short, "error", err)
		}
	}
}

func (o *Orchestrator) reportSummary(res Result) {
	o.ui.Header("Cherry-pick Summary")
	o.ui.Info(fmt.Sprintf("Total commits: %d", res.Total))
	o.ui.Success(fmt.Sprintf("Successful: %d", res.Succeeded))
	if res.Skipped > 0 {
		o.ui.Skipped(fmt.Sprintf("Skipped: %d", res.Skipped))
	}
	if res.Failed > 0 {
		o.ui.Failure(fmt.Sprintf("Failed: %d", res.Failed))
		var items []string
		for _, outcome := range res.Outcomes {
			if outcome.Kind == OutcomeFailed {
				items = append(items, fmt.Sprintf("%s (%s) %s", outcome.Short, outcome.Reason, firstLine(outcome.Detail)))
			}
		}
		o.ui.List("Failed commits:", items)
	}
	if res.Stop != StopCompleted {
		o.ui.Warn(fmt.Sprintf("Run stopped early (%s); %d commit(s) not attempted", res.Stop, res.NotAttempted()))
		if res.StoppedAt != "" {
			o.ui.Info(fmt.Sprintf("Resume with: --start-from %s", res.StoppedAt))
		}
	}

	switch res.Classification {
	case ClassCompleteSuccess:
		o.ui.Success("All commits successfully cherry-picked!")
	case ClassPartial:
		o.ui.Warn("Partial success - some commits had issues")
	default:
		o.ui.Failure("No commits were successfully cherry-picked")
	}

	if o.log != nil {
		o.log.Info("replay finished", "total", res.Total, "succeeded", res.Succeeded, "skipped", res.Skipped, "failed", res.Failed, "classification", res.Classification, "stop", res.Stop)
	}
}

func failed(ref, short string, reason FailureReason, detail string) Outcome {
	return Outcome{Ref: ref, Short: short, Kind: OutcomeFailed, Reason: reason, Detail: strings.TrimSpace(detail)}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
