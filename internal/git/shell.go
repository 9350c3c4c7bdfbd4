package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// ShellExecutor shells out to the system git binary to drive cherry-pick
// replay in an existing work tree.
type ShellExecutor struct {
	// Git is the git binary to execute. Defaults to "git" when empty.
	Git string

	// Mainline, when positive, is passed as `-m <n>` when the commit being
	// applied is a merge commit. When zero, merge commits are applied as-is and
	// git rejects them.
	Mainline int

	// Env is appended to the environment of every git invocation.
	Env []string

	// NetworkRetries controls how many additional attempts should be made for network
	// oriented git commands (clone, fetch, push, pull). When zero, a default of 2 retries is used.
	NetworkRetries int

	// NetworkRetryDelay controls the initial backoff delay between retries. When zero,
	// a default of 1 second is used. Backoff grows exponentially per attempt.
	NetworkRetryDelay time.Duration

	// NetworkTimeout bounds network commands that would otherwise inherit an unbounded
	// context. When zero, a default of 2 minutes is used.
	NetworkTimeout time.Duration
}

// NewShellExecutor returns an Executor backed by system git commands.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

func (e *ShellExecutor) gitBinary() string {
	if e.Git == "" {
		return "git"
	}
	return e.Git
}

// Open locates the work tree containing dir. It returns ErrNotRepository when
// dir is not inside a non-bare git repository.
func (e *ShellExecutor) Open(ctx context.Context, dir string) (Repository, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	top, err := e.runGit(ctx, "-C", abs, "rev-parse", "--show-toplevel")
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) && !errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, abs)
		}
		return nil, err
	}
	top = strings.TrimSpace(top)

	gitDir, err := e.runGit(ctx, "-C", top, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRepository, err)
	}
	gitDir = strings.TrimSpace(gitDir)

	repo := &shellRepository{
		executor: e,
		path:     top,
		gitDir:   gitDir,
		meta:     osfs.New(gitDir),
	}

	// Falls back to rev-parse when go-git cannot open the repository.
	if inspector, err := OpenInspector(top); err == nil {
		repo.inspector = inspector
	}

	return repo, nil
}

type shellRepository struct {
	path      string
	gitDir    string
	meta      billy.Filesystem
	inspector *Inspector
	executor  *ShellExecutor
}

func (r *shellRepository) Dir() string {
	return r.path
}

func (r *shellRepository) DetectOperation(ctx context.Context) (OperationKind, error) {
	kind, err := DetectOperation(r.meta)
	if err != nil {
		return OperationNone, fmt.Errorf("detect operation in %s: %w", r.gitDir, err)
	}
	return kind, nil
}

func (r *shellRepository) OperationHead(ctx context.Context) (string, error) {
	return OperationHead(r.meta)
}

func (r *shellRepository) StatusLines(ctx context.Context) ([]string, error) {
	out, err := r.exec(ctx, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}
	return splitStatusOutput(out), nil
}

func (r *shellRepository) ResolveFull(ctx context.Context, ref string) (string, error) {
	if r.inspector != nil {
		if hash, err := r.inspector.Resolve(ref); err == nil {
			return hash.String(), nil
		}
	}
	out, err := r.exec(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	return strings.TrimSpace(out), nil
}

func (r *shellRepository) ResolveShort(ctx context.Context, ref string) string {
	if r.inspector != nil {
		if hash, err := r.inspector.Resolve(ref); err == nil {
			return hash.String()[:shortHashLength]
		}
	}
	out, err := r.exec(ctx, "rev-parse", "--short", ref)
	if err != nil {
		return ref
	}
	if short := strings.TrimSpace(out); short != "" {
		return short
	}
	return ref
}

func (r *shellRepository) CommitInfo(ctx context.Context, ref string) (CommitInfo, error) {
	if r.inspector != nil {
		if info, err := r.inspector.CommitInfo(ref); err == nil {
			return info, nil
		}
	}

	out, err := r.exec(ctx, "show", "--no-patch", "--format=%H%x00%h%x00%an%x00%ae%x00%at%x00%s", ref)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("git show %s: %w", ref, err)
	}
	fields := strings.Split(strings.TrimSpace(out), "\x00")
	if len(fields) != 6 {
		return CommitInfo{}, fmt.Errorf("git show %s: unexpected output %q", ref, out)
	}
	info := CommitInfo{Hash: fields[0], Short: fields[1], Author: fields[2], Email: fields[3], Subject: fields[5]}
	if secs, err := strconv.ParseInt(fields[4], 10, 64); err == nil {
		info.Date = time.Unix(secs, 0)
	}
	return info, nil
}

func (r *shellRepository) ApplyCommit(ctx context.Context, ref string) error {
	if r.executor.Mainline > 0 {
		isMerge, err := r.isMergeCommit(ctx, ref)
		if err != nil {
			return fmt.Errorf("check if merge commit: %w", err)
		}
		// For merge commits, pick the configured parent as mainline
		if isMerge {
			if _, err := r.exec(ctx, "cherry-pick", "-m", strconv.Itoa(r.executor.Mainline), ref); err != nil {
				return fmt.Errorf("git cherry-pick %s: %w", ref, err)
			}
			return nil
		}
	}

	if _, err := r.exec(ctx, "cherry-pick", ref); err != nil {
		return fmt.Errorf("git cherry-pick %s: %w", ref, err)
	}
	return nil
}

func (r *shellRepository) isMergeCommit(ctx context.Context, ref string) (bool, error) {
	// Output format: "commit_sha parent1_sha [parent2_sha ...]"
	output, err := r.exec(ctx, "rev-list", "--parents", "-n", "1", ref)
	if err != nil {
		return false, err
	}
	fields := strings.Fields(strings.TrimSpace(output))
	return len(fields) > 2, nil
}

func (r *shellRepository) ContinueOperation(ctx context.Context) error {
	kind, err := r.DetectOperation(ctx)
	if err != nil {
		return err
	}
	if kind == OperationNone {
		return ErrNoOperation
	}
	if _, err := r.exec(ctx, string(kind), "--continue"); err != nil {
		return fmt.Errorf("git %s --continue: %w", kind, err)
	}
	return nil
}

func (r *shellRepository) AbortOperation(ctx context.Context) error {
	kind, err := r.DetectOperation(ctx)
	if err != nil {
		return err
	}
	if kind == OperationNone {
		return nil
	}

	_, err = r.exec(ctx, string(kind), "--abort")
	if err == nil {
		return nil
	}
	var gitErr *GitError
	if errors.As(err, &gitErr) {
		if strings.Contains(strings.ToLower(gitErr.Output), "no "+string(kind)) {
			return nil
		}
	}
	return fmt.Errorf("git %s --abort: %w", kind, err)
}

func (r *shellRepository) exec(ctx context.Context, args ...string) (string, error) {
	cmd := append([]string{"-C", r.path}, args...)
	return r.executor.runGit(ctx, cmd...)
}

func (e *ShellExecutor) runGit(ctx context.Context, args ...string) (string, error) {
	primary := primaryGitCommand(args)
	isNetwork := isNetworkCommand(primary)

	// Local commands mutate the work tree and must not be killed halfway
	// through; cancellation is observed between commands instead.
	if !isNetwork {
		return e.runGitOnce(context.WithoutCancel(ctx), args...)
	}

	retries := e.networkRetriesValue()
	delay := e.networkRetryDelayValue()
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		attemptCtx, cancel := e.applyNetworkTimeout(ctx)
		out, err := e.runGitOnce(attemptCtx, args...)
		cancel()

		if err == nil {
			return out, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if attempt == retries {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		if delay < time.Second {
			delay = time.Second
		}
		delay *= 2
	}

	return "", lastErr
}

func (e *ShellExecutor) runGitOnce(ctx context.Context, args ...string) (string, error) {
	cmd := exec.Command(e.gitBinary(), args...)
	cmd.Env = append(os.Environ(), "GIT_EDITOR=true", "GIT_MERGE_AUTOEDIT=no", "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, e.Env...)
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", &GitError{Args: args, Output: stderr.String(), Err: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		terminateProcessGroup(cmd)
		<-done
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", &GitError{Args: args, Output: combineOutput(stderr.String(), stdout.String()), Err: err}
		}
	}

	return stdout.String(), nil
}

func combineOutput(stderr, stdout string) string {
	stderr = strings.TrimSpace(stderr)
	stdout = strings.TrimSpace(stdout)
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	default:
		return stdout + "\n" + stderr
	}
}

func primaryGitCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
		if strings.HasPrefix(arg, "-") {
			switch arg {
			case "-C", "--git-dir", "-c":
				i++
			}
			continue
		}
		return arg
	}
	return ""
}

func isNetworkCommand(cmd string) bool {
	switch cmd {
	case "clone", "fetch", "push", "pull":
		return true
	default:
		return false
	}
}

func (e *ShellExecutor) networkRetriesValue() int {
	if e.NetworkRetries < 0 {
		return 0
	}
	if e.NetworkRetries == 0 {
		return 2
	}
	return e.NetworkRetries
}

func (e *ShellExecutor) networkRetryDelayValue() time.Duration {
	if e.NetworkRetryDelay <= 0 {
		return time.Second
	}
	return e.NetworkRetryDelay
}

func (e *ShellExecutor) networkTimeoutValue() time.Duration {
	if e.NetworkTimeout <= 0 {
		return 2 * time.Minute
	}
	return e.NetworkTimeout
}

func (e *ShellExecutor) applyNetworkTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && !deadline.IsZero() {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.networkTimeoutValue())
}

// GitError wraps failures when invoking the git binary. Output carries the
// diagnostic text git printed.
type GitError struct {
	Args   []string
	Output string
	Err    error
}

func (e *GitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("git %s: %v\n%s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *GitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Diagnostic extracts the git output carried by err, falling back to the
// error text.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var gitErr *GitError
	if errors.As(err, &gitErr) {
		if out := strings.TrimSpace(gitErr.Output); out != "" {
			return out
		}
	}
	return err.Error()
}
