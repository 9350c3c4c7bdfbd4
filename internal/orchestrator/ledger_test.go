package orchestrator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rancher/cherry-pick-replay/internal/orchestrator"
)

var _ = Describe("Ledger", func() {
	succeeded := func(i int) orchestrator.Outcome {
		return orchestrator.Outcome{Index: i, Ref: short(c1), Kind: orchestrator.OutcomeSucceeded}
	}

	It("counts each kind and keeps recording order", func() {
		l := orchestrator.NewLedger(4)
		Expect(l.Record(succeeded(0))).To(Succeed())
		Expect(l.Record(orchestrator.Outcome{Index: 1, Kind: orchestrator.OutcomeSucceededAfterResume})).To(Succeed())
		Expect(l.Record(orchestrator.Outcome{Index: 2, Kind: orchestrator.OutcomeSkipped})).To(Succeed())
		Expect(l.Record(orchestrator.Outcome{Index: 3, Kind: orchestrator.OutcomeFailed, Reason: orchestrator.ReasonApplyError})).To(Succeed())

		Expect(l.Total()).To(Equal(4))
		Expect(l.Succeeded()).To(Equal(2))
		Expect(l.Skipped()).To(Equal(1))
		Expect(l.Failed()).To(Equal(1))
		Expect(l.Processed()).To(Equal(4))

		outcomes := l.Outcomes()
		Expect(outcomes).To(HaveLen(4))
		Expect(outcomes[1].Succeeded()).To(BeTrue())
		Expect(outcomes[2].Succeeded()).To(BeFalse())
	})

	It("rejects recording the same commit twice", func() {
		l := orchestrator.NewLedger(2)
		Expect(l.Record(succeeded(0))).To(Succeed())
		Expect(l.Record(succeeded(0))).To(MatchError(orchestrator.ErrLedger))
		Expect(l.Processed()).To(Equal(1))
	})

	It("rejects indexes outside the run", func() {
		l := orchestrator.NewLedger(1)
		Expect(l.Record(succeeded(1))).To(MatchError(orchestrator.ErrLedger))
		Expect(l.Record(succeeded(-1))).To(MatchError(orchestrator.ErrLedger))
		Expect(orchestrator.NewLedger(0).Record(succeeded(0))).To(MatchError(orchestrator.ErrLedger))
	})

	DescribeTable("rejects malformed outcomes",
		func(o orchestrator.Outcome) {
			l := orchestrator.NewLedger(1)
			Expect(l.Record(o)).To(MatchError(orchestrator.ErrLedger))
			Expect(l.Processed()).To(BeZero())
			Expect(l.Outcomes()).To(BeEmpty())
		},
		Entry("failed without a reason", orchestrator.Outcome{Kind: orchestrator.OutcomeFailed}),
		Entry("failed with an unknown reason", orchestrator.Outcome{Kind: orchestrator.OutcomeFailed, Reason: "timeout"}),
		Entry("succeeded with a reason", orchestrator.Outcome{Kind: orchestrator.OutcomeSucceeded, Reason: orchestrator.ReasonApplyError}),
		Entry("skipped with a reason", orchestrator.Outcome{Kind: orchestrator.OutcomeSkipped, Reason: orchestrator.ReasonContinueError}),
		Entry("unknown kind", orchestrator.Outcome{Kind: "pending"}),
	)

	DescribeTable("classifies the run",
		func(total int, kinds []orchestrator.OutcomeKind, want orchestrator.Classification) {
			l := orchestrator.NewLedger(total)
			for i, kind := range kinds {
				o := orchestrator.Outcome{Index: i, Kind: kind}
				if kind == orchestrator.OutcomeFailed {
					o.Reason = orchestrator.ReasonInternalError
				}
				Expect(l.Record(o)).To(Succeed())
			}
			Expect(l.Classify()).To(Equal(want))
			Expect(l.Summary().Classification).To(Equal(want))
		},
		Entry("everything applied", 2,
			[]orchestrator.OutcomeKind{orchestrator.OutcomeSucceeded, orchestrator.OutcomeSucceededAfterResume},
			orchestrator.ClassCompleteSuccess),
		Entry("empty run", 0, nil, orchestrator.ClassCompleteSuccess),
		Entry("a skip makes it partial", 2,
			[]orchestrator.OutcomeKind{orchestrator.OutcomeSucceeded, orchestrator.OutcomeSkipped},
			orchestrator.ClassPartial),
		Entry("stopped early after one success", 3,
			[]orchestrator.OutcomeKind{orchestrator.OutcomeSucceeded},
			orchestrator.ClassPartial),
		Entry("only skips and failures", 2,
			[]orchestrator.OutcomeKind{orchestrator.OutcomeSkipped, orchestrator.OutcomeFailed},
			orchestrator.ClassTotalFailure),
		Entry("nothing processed", 2, nil, orchestrator.ClassTotalFailure),
	)

	It("snapshots independently of later records", func() {
		l := orchestrator.NewLedger(2)
		Expect(l.Record(succeeded(0))).To(Succeed())
		snap := l.Summary()
		Expect(l.Record(succeeded(1))).To(Succeed())

		Expect(snap.Succeeded).To(Equal(1))
		Expect(snap.Outcomes).To(HaveLen(1))
		Expect(l.Summary().Outcomes).To(HaveLen(2))
	})
})
