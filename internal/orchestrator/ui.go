package orchestrator

import (
	"context"

	"github.com/rancher/cherry-pick-replay/internal/console"
)

// UI is the human interaction surface used at progress and decision points.
// *console.Console satisfies it.
type UI interface {
	Header(title string)
	Progress(index, total int)
	Info(msg string)
	Success(msg string)
	Warn(msg string)
	Failure(msg string)
	Skipped(msg string)
	Detail(msg string)
	List(title string, items []string)
	Steps(title string, steps []string)
	Ask(ctx context.Context, question string, choices []console.Choice) (string, error)
}

var _ UI = (*console.Console)(nil)

const (
	keyYes  = "y"
	keyNo   = "n"
	keySkip = "s"
	keyQuit = "q"
)

var recoveryChoices = []console.Choice{
	{Key: keyYes, Label: "Proceed (operation finished, no conflicts left)"},
	{Key: keyNo, Label: "Still working on it"},
	{Key: keyQuit, Label: "Abandon the run (resume later)"},
}

var mediatorChoices = []console.Choice{
	{Key: keyYes, Label: "Continue (conflicts resolved)"},
	{Key: keyNo, Label: "Still working on conflicts"},
	{Key: keySkip, Label: "Skip this commit"},
	{Key: keyQuit, Label: "Quit the process"},
}
