package orchestrator_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rancher/cherry-pick-replay/internal/commits"
	"github.com/rancher/cherry-pick-replay/internal/git"
	"github.com/rancher/cherry-pick-replay/internal/orchestrator"
)

const (
	c1 = "1111111aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	c2 = "2222222bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	c3 = "3333333ccccccccccccccccccccccccccccccccc"
)

var _ = Describe("Orchestrator", func() {
	var (
		ctx  context.Context
		repo *fakeRepo
		ui   *scriptedUI
		orch *orchestrator.Orchestrator
	)

	queueOf := func(refs ...string) commits.Queue {
		return commits.Queue{Refs: refs}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newFakeRepo()
		ui = &scriptedUI{}
		orch = orchestrator.New(orchestrator.Config{}, ui, nil)
	})

	AfterEach(func() {
		Expect(repo.violations).To(BeEmpty(), "apply_commit was called on a tree that was not clean")
	})

	It("applies every commit in queue order when nothing conflicts", func() {
		res, err := orch.Run(ctx, repo, queueOf(c1, c2, c3))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c1, "apply " + c2, "apply " + c3}))
		Expect(res.Total).To(Equal(3))
		Expect(res.Succeeded).To(Equal(3))
		Expect(res.Skipped).To(BeZero())
		Expect(res.Failed).To(BeZero())
		Expect(res.Stop).To(Equal(orchestrator.StopCompleted))
		Expect(res.Classification).To(Equal(orchestrator.ClassCompleteSuccess))
		Expect(ui.questions).To(BeEmpty())
		Expect(ui.output()).To(ContainSubstring("progress: 2/3"))
		Expect(ui.output()).To(ContainSubstring("detail: 2222222 change 2222222"))
	})

	It("prints a placeholder when the commit cannot be described", func() {
		repo.infoErr = errors.New("bad object")
		_, err := orch.Run(ctx, repo, queueOf(c1))
		Expect(err).NotTo(HaveOccurred())
		Expect(ui.output()).To(ContainSubstring("detail: (could not retrieve commit info)"))
	})

	It("never re-applies a conflicted commit before continue or abort", func() {
		repo.apply[c1] = conflicts("a.go")
		ui.answers = []answer{say("n"), sayAfter("y", repo.resolve)}

		res, err := orch.Run(ctx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c1, "continue", "apply " + c2}))
		Expect(res.Succeeded).To(Equal(2))
		Expect(ui.output()).To(ContainSubstring("list: Conflicted files: a.go"))
		Expect(ui.output()).To(ContainSubstring("Take your time"))
	})

	It("aborts exactly once and records one skip when the human skips", func() {
		repo.apply[c1] = conflicts("a.go", "b.go")
		ui.answers = []answer{say("s")}

		res, err := orch.Run(ctx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c1, "abort", "apply " + c2}))
		Expect(repo.count("abort")).To(Equal(1))
		Expect(res.Skipped).To(Equal(1))
		Expect(res.Succeeded).To(Equal(1))
		Expect(res.Outcomes[0].Kind).To(Equal(orchestrator.OutcomeSkipped))
		Expect(res.Classification).To(Equal(orchestrator.ClassPartial))
	})

	It("still records the skip when aborting fails", func() {
		repo.apply[c1] = conflicts("a.go")
		repo.abortErr = gitFailure(c1, "error: could not abort")
		ui.answers = []answer{say("s"), sayAfter("q", nil)}

		res, err := orch.Run(ctx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.count("abort")).To(Equal(1))
		Expect(res.Skipped).To(Equal(1))
		// The left-over cherry-pick is caught before c2 and the human abandons.
		Expect(res.Stop).To(Equal(orchestrator.StopAbandoned))
		Expect(repo.calls).NotTo(ContainElement("apply " + c2))
	})

	It("stops immediately on quit and leaves the operation open", func() {
		repo.apply[c1] = conflicts("a.go")
		ui.answers = []answer{say("q")}

		res, err := orch.Run(ctx, repo, queueOf(c1, c2, c3))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c1}))
		Expect(repo.op).To(Equal(git.OperationCherryPick))
		Expect(res.Stop).To(Equal(orchestrator.StopQuit))
		Expect(res.StoppedAt).To(Equal(c1))
		Expect(res.Total).To(Equal(3))
		Expect(res.Succeeded + res.Skipped + res.Failed).To(BeZero())
		Expect(res.NotAttempted()).To(Equal(3))
		Expect(ui.output()).To(ContainSubstring("Process aborted by user."))
	})

	It("records c1 and c2 as succeeded and c3 as failed", func() {
		repo.apply[c2] = conflicts("a.go")
		repo.apply[c3] = badCommit()
		ui.answers = []answer{sayAfter("y", repo.resolve)}

		res, err := orch.Run(ctx, repo, queueOf(c1, c2, c3))
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Total).To(Equal(3))
		Expect(res.Succeeded).To(Equal(2))
		Expect(res.Failed).To(Equal(1))
		Expect(res.Skipped).To(BeZero())
		Expect(res.Outcomes[2].Ref).To(Equal(c3))
		Expect(res.Outcomes[2].Reason).To(Equal(orchestrator.ReasonApplyError))
		Expect(res.Outcomes[2].Detail).To(ContainSubstring("bad object"))
		Expect(res.Stop).To(Equal(orchestrator.StopCompleted))
		Expect(res.Classification).To(Equal(orchestrator.ClassPartial))
	})

	It("only attempts commits from the start offset onwards", func() {
		queue, found := commits.NewQueue([]string{c1, c2, c3}, c2)
		Expect(found).To(BeTrue())

		res, err := orch.Run(ctx, repo, queue)
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c2, "apply " + c3}))
		Expect(res.Total).To(Equal(2))
		Expect(res.Offset).To(Equal(1))
		Expect(res.Succeeded).To(Equal(2))
	})

	It("continues a cherry-pick whose conflicts were already resolved", func() {
		repo.apply[c1] = resolvedButOpen()

		res, err := orch.Run(ctx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c1, "continue", "apply " + c2}))
		Expect(res.Outcomes[0].Kind).To(Equal(orchestrator.OutcomeSucceededAfterResume))
		Expect(res.Succeeded).To(Equal(2))
		Expect(ui.questions).To(BeEmpty())
	})

	It("aborts and records a continue-error when resuming fails", func() {
		repo.apply[c1] = resolvedButOpen()
		repo.continueErr = gitFailure(c1, "error: empty commit set passed")

		res, err := orch.Run(ctx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c1, "continue", "abort", "apply " + c2}))
		Expect(res.Outcomes[0].Kind).To(Equal(orchestrator.OutcomeFailed))
		Expect(res.Outcomes[0].Reason).To(Equal(orchestrator.ReasonContinueError))
		Expect(res.Failed).To(Equal(1))
		Expect(res.Succeeded).To(Equal(1))
	})

	It("treats an open cherry-pick of another commit as an unrelated failure", func() {
		repo.apply[c1] = func(r *fakeRepo, ref string) error {
			r.op = git.OperationCherryPick
			r.head = c3
			return gitFailure(ref, "error: cherry-pick is already in progress")
		}
		ui.answers = []answer{sayAfter("y", repo.clear)}

		res, err := orch.Run(ctx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Outcomes[0].Reason).To(Equal(orchestrator.ReasonApplyError))
		Expect(repo.count("continue")).To(BeZero())
		Expect(ui.questions).To(Equal([]string{"Continue with the process?"}))
	})

	It("rejects continue while conflicts remain", func() {
		repo.apply[c1] = conflicts("a.go")
		ui.answers = []answer{say("y"), say("s")}

		res, err := orch.Run(ctx, repo, queueOf(c1))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.count("continue")).To(BeZero())
		Expect(ui.questions).To(HaveLen(2))
		Expect(ui.output()).To(ContainSubstring("Conflicts still exist. Please resolve them first."))
		Expect(res.Skipped).To(Equal(1))
	})

	It("treats an operation finished by hand as resolved without continuing", func() {
		repo.apply[c1] = conflicts("a.go")
		ui.answers = []answer{sayAfter("y", repo.clear)}

		res, err := orch.Run(ctx, repo, queueOf(c1))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c1}))
		Expect(res.Outcomes[0].Kind).To(Equal(orchestrator.OutcomeSucceeded))
	})

	It("records a continue-error and advances when continue fails after resolution", func() {
		repo.apply[c1] = conflicts("a.go")
		repo.continueErr = gitFailure(c1, "error: commit hook rejected")
		ui.answers = []answer{
			sayAfter("y", repo.resolve),
			// recovery prompt before c2 for the cherry-pick still open
			sayAfter("y", repo.clear),
		}

		res, err := orch.Run(ctx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c1, "continue", "apply " + c2}))
		Expect(res.Outcomes[0].Reason).To(Equal(orchestrator.ReasonContinueError))
		Expect(res.Outcomes[0].Detail).To(ContainSubstring("hook rejected"))
		Expect(res.Failed).To(Equal(1))
		Expect(res.Succeeded).To(Equal(1))
		Expect(ui.questions).To(Equal([]string{"What would you like to do?", "Continue with the process?"}))
	})

	Context("with an operation already in progress", func() {
		It("waits until the operation is closed before applying", func() {
			repo.op = git.OperationMerge
			ui.answers = []answer{say("n"), say("y"), sayAfter("y", repo.clear)}

			res, err := orch.Run(ctx, repo, queueOf(c1))
			Expect(err).NotTo(HaveOccurred())

			Expect(ui.output()).To(ContainSubstring("Detected ongoing merge operation."))
			Expect(ui.output()).To(ContainSubstring("git commit"))
			Expect(ui.output()).To(ContainSubstring("The merge is still in progress"))
			Expect(repo.calls).To(Equal([]string{"apply " + c1}))
			Expect(res.Succeeded).To(Equal(1))
		})

		It("rejects proceed while conflicts remain", func() {
			repo.op = git.OperationRebase
			repo.status = []string{"UU a.go"}
			ui.answers = []answer{say("y"), say("q")}

			res, err := orch.Run(ctx, repo, queueOf(c1, c2))
			Expect(err).NotTo(HaveOccurred())

			Expect(ui.output()).To(ContainSubstring("Conflicts still exist. Please resolve them first."))
			Expect(ui.output()).To(ContainSubstring("git rebase --continue"))
			Expect(repo.calls).To(BeEmpty())
			Expect(res.Stop).To(Equal(orchestrator.StopAbandoned))
			Expect(res.Total).To(Equal(2))
			Expect(res.NotAttempted()).To(Equal(2))
		})

		It("treats unmerged paths without an operation as needing recovery", func() {
			repo.status = []string{"AA added.go"}
			ui.answers = []answer{sayAfter("y", repo.clear)}

			res, err := orch.Run(ctx, repo, queueOf(c1))
			Expect(err).NotTo(HaveOccurred())

			Expect(ui.output()).To(ContainSubstring("Detected unresolved conflicts in the working tree."))
			Expect(res.Succeeded).To(Equal(1))
		})

		It("abandons the run when input is exhausted", func() {
			repo.op = git.OperationRevert

			res, err := orch.Run(ctx, repo, queueOf(c1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stop).To(Equal(orchestrator.StopAbandoned))
			Expect(repo.calls).To(BeEmpty())
		})
	})

	It("quits when input is exhausted at the conflict prompt", func() {
		repo.apply[c1] = conflicts("a.go")

		res, err := orch.Run(ctx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stop).To(Equal(orchestrator.StopQuit))
		Expect(repo.calls).To(Equal([]string{"apply " + c1}))
	})

	It("stops at the next commit boundary when interrupted", func() {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		repo.apply[c1] = func(*fakeRepo, string) error {
			cancel()
			return nil
		}

		res, err := orch.Run(runCtx, repo, queueOf(c1, c2, c3))
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.calls).To(Equal([]string{"apply " + c1}))
		Expect(res.Stop).To(Equal(orchestrator.StopInterrupted))
		Expect(res.StoppedAt).To(Equal(c2))
		Expect(res.Succeeded).To(Equal(1))
	})

	It("reports an interrupt during a prompt as interrupted", func() {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		repo.apply[c1] = func(r *fakeRepo, ref string) error {
			err := conflicts("a.go")(r, ref)
			cancel()
			return err
		}

		res, err := orch.Run(runCtx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stop).To(Equal(orchestrator.StopInterrupted))
		Expect(ui.output()).NotTo(ContainSubstring("Process aborted by user."))
	})

	It("fails the run when the repository metadata cannot be read", func() {
		repo.detectErr = errors.New("permission denied")

		_, err := orch.Run(ctx, repo, queueOf(c1))
		Expect(err).To(MatchError(ContainSubstring("permission denied")))
		Expect(repo.calls).To(BeEmpty())
	})

	It("records an internal-error when the tree cannot be inspected after a failed apply", func() {
		repo.apply[c1] = func(r *fakeRepo, ref string) error {
			r.statusErr = errors.New("index.lock exists")
			return gitFailure(ref, "fatal: unable to write index")
		}

		res, err := orch.Run(ctx, repo, queueOf(c1))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcomes[0].Reason).To(Equal(orchestrator.ReasonInternalError))
		Expect(res.Classification).To(Equal(orchestrator.ClassTotalFailure))
	})

	It("isolates a panic to the commit being processed", func() {
		repo.apply[c1] = func(*fakeRepo, string) error {
			panic("boom")
		}

		res, err := orch.Run(ctx, repo, queueOf(c1, c2))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcomes[0].Reason).To(Equal(orchestrator.ReasonInternalError))
		Expect(res.Outcomes[0].Detail).To(Equal("boom"))
		Expect(res.Outcomes[1].Kind).To(Equal(orchestrator.OutcomeSucceeded))
	})

	It("uses dry run wording", func() {
		orch = orchestrator.New(orchestrator.Config{DryRun: true}, ui, nil)

		_, err := orch.Run(ctx, repo, queueOf(c1))
		Expect(err).NotTo(HaveOccurred())
		Expect(ui.output()).To(ContainSubstring("Running in DRY RUN mode"))
		Expect(ui.output()).To(ContainSubstring("[DRY RUN] Would cherry-pick: " + c1))
	})

	It("prints the summary with failed commits and a resume hint", func() {
		repo.apply[c1] = badCommit()
		repo.apply[c2] = conflicts("a.go")
		ui.answers = []answer{say("q")}

		_, err := orch.Run(ctx, repo, queueOf(c1, c2, c3))
		Expect(err).NotTo(HaveOccurred())

		out := ui.output()
		Expect(out).To(ContainSubstring("header: Cherry-pick Summary"))
		Expect(out).To(ContainSubstring("failure: Failed: 1"))
		Expect(out).To(ContainSubstring("list: Failed commits: 1111111 (apply-error) fatal: bad object"))
		Expect(out).To(ContainSubstring("Run stopped early (quit); 2 commit(s) not attempted"))
		Expect(out).To(ContainSubstring("Resume with: --start-from " + c2))
		Expect(out).To(ContainSubstring("No commits were successfully cherry-picked"))
	})
})
