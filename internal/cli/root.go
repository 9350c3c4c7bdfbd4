package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rancher/cherry-pick-replay/internal/app"
)

var version, commit, date = "dev", "none", "unknown"

// SetVersionInfo sets version information from ldflags
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

// Streams are the process streams the commands talk through.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// DefaultStreams returns the standard process streams.
func DefaultStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Execute runs the root command with ctx, which is canceled on interrupt.
func Execute(ctx context.Context, streams Streams) error {
	return NewRootCommand(streams).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand(streams Streams) *cobra.Command {
	root, _ := newRootCommand(streams)
	return root
}

// persistentFlag binds a root flag to its configuration key.
type persistentFlag struct {
	key  string
	name string
}

func newRootCommand(streams Streams) (*cobra.Command, *viper.Viper) {
	v := viper.New()
	app.SetDefaults(v)
	app.ConfigureEnv(v)

	var cfgFile string

	root := &cobra.Command{
		Use:   "cherry-pick-replay",
		Short: "Replay a list of commits onto the current branch, pausing on conflicts",
		Long: `cherry-pick-replay applies an ordered list of commits to the current work tree
one at a time. When a cherry-pick conflicts it stops and waits for you to
resolve, skip, or quit, and it refuses to start while another git operation
is left open. Every commit ends up in a summary as succeeded, skipped, or
failed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.ReadConfigFile(v, cfgFile)
		},
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)
	root.SetVersionTemplate(versionTemplate())

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.config/cherry-pick-replay/config.yaml)")
	flags.StringP("repo-dir", "C", ".", "work tree to replay commits into")
	flags.BoolP("dry-run", "n", false, "show what would be cherry-picked without changing the work tree")
	flags.String("start-from", "", "skip the commits listed before this one")
	flags.IntP("mainline", "m", 0, "parent number to replay merge commits against (0 rejects merge commits)")
	flags.Bool("show-status", false, "print the full git status at conflict prompts")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("git", "git", "git binary to run")
	flags.Bool("offline", false, "do not query the GitHub API")
	flags.String("summary-file", "", "append a markdown summary to this file (defaults to $GITHUB_STEP_SUMMARY)")
	flags.String("report-file", "", "write a JSON report of the run to this file")
	flags.Int("network-retries", 2, "extra attempts for git fetch")
	flags.Duration("network-timeout", 2*time.Minute, "timeout for each git fetch attempt")

	bindings := []persistentFlag{
		{app.KeyRepoDir, "repo-dir"},
		{app.KeyDryRun, "dry-run"},
		{app.KeyStartFrom, "start-from"},
		{app.KeyMainline, "mainline"},
		{app.KeyShowStatus, "show-status"},
		{app.KeyLogLevel, "log-level"},
		{app.KeyLogFormat, "log-format"},
		{app.KeyVerbose, "verbose"},
		{app.KeyNoColor, "no-color"},
		{app.KeyGitBinary, "git"},
		{app.KeyOffline, "offline"},
		{app.KeySummaryFile, "summary-file"},
		{app.KeyReportFile, "report-file"},
		{app.KeyNetworkRetries, "network-retries"},
		{app.KeyNetworkTimeout, "network-timeout"},
	}
	for _, b := range bindings {
		_ = v.BindPFlag(b.key, flags.Lookup(b.name))
	}

	root.AddCommand(
		newApplyCommand(v, streams),
		newDiffTagCommand(v, streams),
	)
	return root, v
}

func versionTemplate() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("cherry-pick-replay %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("cherry-pick-replay %s\n", version)
}

func newRunner(v *viper.Viper, streams Streams) (*app.Runner, error) {
	cfg, err := app.LoadConfig(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.NewRunner(cfg, streams.In, streams.Out, streams.Err)
}
