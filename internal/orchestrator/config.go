package orchestrator

// Config captures the runtime controls the orchestrator needs.
type Config struct {
	// DryRun only changes wording; the repository handed to Run is expected
	// to be a dry-run wrapper that performs no mutations.
	DryRun bool
	// ShowStatus prints the full porcelain status when a conflict is
	// detected, not only the conflicted paths.
	ShowStatus bool
}
