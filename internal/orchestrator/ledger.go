package orchestrator

import (
	"errors"
	"fmt"
)

// ErrLedger reports a bookkeeping violation. It is fatal to the whole run.
var ErrLedger = errors.New("orchestrator: ledger bookkeeping error")

// OutcomeKind is the terminal result recorded for one commit.
type OutcomeKind string

const (
	OutcomeSucceeded            OutcomeKind = "succeeded"
	OutcomeSucceededAfterResume OutcomeKind = "succeeded_after_resume"
	OutcomeSkipped              OutcomeKind = "skipped"
	OutcomeFailed               OutcomeKind = "failed"
)

// FailureReason qualifies an OutcomeFailed.
type FailureReason string

const (
	ReasonApplyError    FailureReason = "apply-error"
	ReasonContinueError FailureReason = "continue-error"
	ReasonInternalError FailureReason = "internal-error"
)

// Classification summarizes a run for the closing report.
type Classification string

const (
	ClassCompleteSuccess Classification = "complete_success"
	ClassPartial         Classification = "partial"
	ClassTotalFailure    Classification = "total_failure"
)

// Outcome is the immutable record for one processed commit.
type Outcome struct {
	// Index is the commit's position among the attempted commits.
	Index  int           `json:"index"`
	Ref    string        `json:"ref"`
	Short  string        `json:"short"`
	Kind   OutcomeKind   `json:"kind"`
	Reason FailureReason `json:"reason,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

// Succeeded reports whether the commit ended up applied.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSucceeded || o.Kind == OutcomeSucceededAfterResume
}

// Ledger is the append-only record of one run. Every attempted commit is
// recorded exactly once and the counters never exceed the total.
type Ledger struct {
	total     int
	succeeded int
	skipped   int
	failed    int
	outcomes  []Outcome
	recorded  map[int]struct{}
}

// NewLedger returns a ledger for a run that will attempt total commits.
func NewLedger(total int) *Ledger {
	return &Ledger{total: total, recorded: make(map[int]struct{}, total)}
}

// Record appends an outcome. It fails with ErrLedger, leaving the ledger
// untouched, when the outcome is malformed, its index was already recorded,
// or recording it would exceed the total.
func (l *Ledger) Record(o Outcome) error {
	if o.Index < 0 || o.Index >= l.total {
		return fmt.Errorf("%w: index %d outside 0..%d", ErrLedger, o.Index, l.total-1)
	}
	if _, dup := l.recorded[o.Index]; dup {
		return fmt.Errorf("%w: commit %d (%s) already recorded", ErrLedger, o.Index, o.Ref)
	}
	if l.Processed() >= l.total {
		return fmt.Errorf("%w: all %d commits already recorded", ErrLedger, l.total)
	}

	switch o.Kind {
	case OutcomeSucceeded, OutcomeSucceededAfterResume:
		if o.Reason != "" {
			return fmt.Errorf("%w: %s outcome with failure reason %q", ErrLedger, o.Kind, o.Reason)
		}
		l.succeeded++
	case OutcomeSkipped:
		if o.Reason != "" {
			return fmt.Errorf("%w: skipped outcome with failure reason %q", ErrLedger, o.Reason)
		}
		l.skipped++
	case OutcomeFailed:
		switch o.Reason {
		case ReasonApplyError, ReasonContinueError, ReasonInternalError:
		default:
			return fmt.Errorf("%w: failed outcome with unknown reason %q", ErrLedger, o.Reason)
		}
		l.failed++
	default:
		return fmt.Errorf("%w: unknown outcome kind %q", ErrLedger, o.Kind)
	}

	l.recorded[o.Index] = struct{}{}
	l.outcomes = append(l.outcomes, o)
	return nil
}

func (l *Ledger) Total() int     { return l.total }
func (l *Ledger) Succeeded() int { return l.succeeded }
func (l *Ledger) Skipped() int   { return l.skipped }
func (l *Ledger) Failed() int    { return l.failed }

// Processed is the number of commits recorded so far.
func (l *Ledger) Processed() int {
	return l.succeeded + l.skipped + l.failed
}

// Outcomes returns a copy of the recorded outcomes in recording order.
func (l *Ledger) Outcomes() []Outcome {
	return append([]Outcome(nil), l.outcomes...)
}

// Classify labels the run for the closing report. It has no effect on
// control flow.
func (l *Ledger) Classify() Classification {
	switch {
	case l.succeeded == l.total:
		return ClassCompleteSuccess
	case l.succeeded == 0:
		return ClassTotalFailure
	default:
		return ClassPartial
	}
}

// Summary is a point-in-time copy of the ledger.
type Summary struct {
	Total          int            `json:"total"`
	Succeeded      int            `json:"succeeded"`
	Skipped        int            `json:"skipped"`
	Failed         int            `json:"failed"`
	Classification Classification `json:"classification"`
	Outcomes       []Outcome      `json:"outcomes"`
}

// Summary snapshots the ledger.
func (l *Ledger) Summary() Summary {
	return Summary{
		Total:          l.total,
		Succeeded:      l.succeeded,
		Skipped:        l.skipped,
		Failed:         l.failed,
		Classification: l.Classify(),
		Outcomes:       l.Outcomes(),
	}
}
