package git

import (
	"context"
	"log/slog"
)

// NewDryRunExecutor returns an Executor whose repositories answer queries from
// the wrapped executor but perform no mutations. Every mutation succeeds and
// is logged instead.
func NewDryRunExecutor(inner Executor, logger *slog.Logger) Executor {
	return &dryRunExecutor{inner: inner, log: logger}
}

type dryRunExecutor struct {
	inner Executor
	log   *slog.Logger
}

func (e *dryRunExecutor) Open(ctx context.Context, dir string) (Repository, error) {
	repo, err := e.inner.Open(ctx, dir)
	if err != nil {
		return nil, err
	}
	return &dryRunRepository{Repository: repo, log: e.log}, nil
}

type dryRunRepository struct {
	Repository
	log *slog.Logger
}

func (r *dryRunRepository) ApplyCommit(ctx context.Context, ref string) error {
	if r.log != nil {
		r.log.Info("dry run: would cherry-pick", "commit", ref)
	}
	return nil
}

func (r *dryRunRepository) ContinueOperation(ctx context.Context) error {
	if r.log != nil {
		r.log.Info("dry run: would continue current operation")
	}
	return nil
}

func (r *dryRunRepository) AbortOperation(ctx context.Context) error {
	if r.log != nil {
		r.log.Info("dry run: would abort current operation")
	}
	return nil
}
