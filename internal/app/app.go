package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rancher/cherry-pick-replay/internal/commits"
	"github.com/rancher/cherry-pick-replay/internal/console"
	"github.com/rancher/cherry-pick-replay/internal/git"
	gh "github.com/rancher/cherry-pick-replay/internal/github"
	"github.com/rancher/cherry-pick-replay/internal/orchestrator"
)

// previewLimit caps the commits listed after diff-tag writes its file.
const previewLimit = 10

// Runner glues together the orchestrator and supporting services to execute
// the replay and diff-tag flows.
type Runner struct {
	cfg       Config
	log       *slog.Logger
	ui        *console.Console
	runID     string
	ghFactory gh.Factory
	gitExec   git.Executor // only set for testing via NewRunnerWithDeps
	now       func() time.Time
}

// NewRunner constructs a Runner with the supplied configuration. Prompts are
// read from in; progress and prompts go to out and logs go to logOut.
func NewRunner(cfg Config, in io.Reader, out, logOut io.Writer) (*Runner, error) {
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	factory := gh.NewRESTFactory(cfg.GitHubBaseURL, cfg.GitHubUploadURL)
	if cfg.Offline {
		factory = gh.NewNoopFactory()
	}

	ui := console.New(in, out, console.Options{NoColor: cfg.NoColor})
	return NewRunnerWithDeps(cfg, logger, ui, factory, nil), nil
}

// NewRunnerWithDeps constructs a Runner with injected dependencies for testing.
// A nil gitExec selects the system git binary.
func NewRunnerWithDeps(cfg Config, log *slog.Logger, ui *console.Console, ghFactory gh.Factory, gitExec git.Executor) *Runner {
	runID := uuid.NewString()
	if log != nil {
		log = log.With("run_id", runID)
	}
	return &Runner{
		cfg:       cfg,
		log:       log,
		ui:        ui,
		runID:     runID,
		ghFactory: ghFactory,
		gitExec:   gitExec,
		now:       time.Now,
	}
}

// RunID identifies this run in logs and reports.
func (r *Runner) RunID() string {
	return r.runID
}

// Apply replays the commits listed in path onto the work tree. Only fatal
// preconditions and run-level failures are returned as errors; conflicts,
// skips and per-commit failures end up in the summary.
func (r *Runner) Apply(ctx context.Context, path string) error {
	if r.log != nil {
		r.log.Info("starting cherry-pick replay", "commit_list", path, "dry_run", r.cfg.DryRun, "start_from", r.cfg.StartFrom)
	}

	repo, err := r.openRepository(ctx)
	if err != nil {
		return err
	}

	list, err := commits.Load(path)
	if err != nil {
		return err
	}
	if r.log != nil {
		r.log.Debug("loaded commit list", "path", list.Path, "format", list.Format, "commits", len(list.Refs))
	}

	return r.replay(ctx, repo, list.Refs, list.Path)
}

// DiffTag writes the commits that the release tag at tagURL has and HEAD does
// not to outputPath, and replays them when apply is set.
func (r *Runner) DiffTag(ctx context.Context, tagURL, outputPath string, apply bool) error {
	ref, err := commits.ParseTagURL(tagURL)
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = commits.DefaultListFile
	}

	r.ui.Info(fmt.Sprintf("Repository: %s/%s", ref.Owner, ref.Repo))
	r.ui.Info(fmt.Sprintf("Tag: %s", ref.Tag))
	r.ui.Info(fmt.Sprintf("Remote URL: %s", ref.RemoteURL()))

	repo, err := r.openRepository(ctx)
	if err != nil {
		return err
	}

	differ := commits.NewDiffer(repo, r.tagClient(ctx), r.log)
	r.ui.Info(fmt.Sprintf("Finding commits in '%s' that are not in HEAD...", ref.Tag))
	result, err := differ.Diff(ctx, ref)
	if err != nil {
		var notFound *commits.TagNotFoundError
		if errors.As(err, &notFound) {
			r.ui.Failure(fmt.Sprintf("Tag '%s' not found. Available tags:", ref.Tag))
			for _, tag := range notFound.Available {
				r.ui.Detail(tag)
			}
		}
		return fmt.Errorf("diff %s: %w", ref, err)
	}

	r.ui.Info(fmt.Sprintf("Tag '%s' points to: %s", ref.Tag, repo.ResolveShort(ctx, result.TagCommit)))
	if len(result.Commits) == 0 {
		r.ui.Success(fmt.Sprintf("No commits found in '%s' that are not in HEAD", ref.Tag))
		return nil
	}

	r.ui.Info(fmt.Sprintf("Found %d commit(s) in '%s' that are not in HEAD", len(result.Commits), ref.Tag))
	if err := commits.WriteListFile(outputPath, result, r.now()); err != nil {
		return err
	}
	r.ui.Success(fmt.Sprintf("Results saved to '%s'", outputPath))
	r.showPreview(result)

	if !apply {
		r.ui.Info(fmt.Sprintf("Replay them with: cherry-pick-replay apply %s", outputPath))
		return nil
	}
	return r.replay(ctx, repo, result.Refs(), ref.String())
}

func (r *Runner) replay(ctx context.Context, repo git.Repository, refs []string, source string) error {
	queue, found := commits.NewQueue(refs, r.cfg.StartFrom)
	if !found {
		r.ui.Warn(fmt.Sprintf("Start commit %s not found in list, starting from beginning", r.cfg.StartFrom))
	}

	orch := orchestrator.New(orchestrator.Config{DryRun: r.cfg.DryRun, ShowStatus: r.cfg.ShowStatus}, r.ui, r.log)
	result, err := orch.Run(ctx, repo, queue)
	if err != nil {
		return fmt.Errorf("replay commits: %w", err)
	}

	r.writeOutputs(r.newReport(source, result))
	return nil
}

func (r *Runner) showPreview(result commits.DiffResult) {
	r.ui.Header("Commit preview")
	for i, c := range result.Commits {
		if i == previewLimit {
			r.ui.Detail(fmt.Sprintf("... and %d more commit(s)", len(result.Commits)-previewLimit))
			break
		}
		r.ui.Detail(c.OneLine())
	}
}

// tagClient returns the GitHub tag client, or nil when none can be built. The
// diff still works without it from local tags.
func (r *Runner) tagClient(ctx context.Context) gh.TagClient {
	if r.ghFactory == nil {
		return nil
	}
	client, err := r.ghFactory.New(ctx, r.cfg.GitHubToken)
	if err != nil {
		if r.log != nil {
			r.log.Warn("github client unavailable, using local tags only", "error", err)
		}
		return nil
	}
	return client
}

func (r *Runner) openRepository(ctx context.Context) (git.Repository, error) {
	executor := r.gitExec
	if executor == nil {
		executor = r.buildGitExecutor()
	}
	if r.cfg.DryRun {
		executor = git.NewDryRunExecutor(executor, r.log)
	}

	repo, err := executor.Open(ctx, r.cfg.RepoDir)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	if r.log != nil {
		r.log.Debug("opened repository", "dir", repo.Dir())
	}
	return repo, nil
}

func (r *Runner) buildGitExecutor() git.Executor {
	exec := git.NewShellExecutor()
	exec.Git = r.cfg.GitBinary
	exec.Mainline = r.cfg.Mainline
	exec.NetworkRetries = r.cfg.NetworkRetries
	if r.cfg.NetworkRetries == 0 {
		exec.NetworkRetries = -1
	}
	exec.NetworkTimeout = r.cfg.NetworkTimeout
	return exec
}
