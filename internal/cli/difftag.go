package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDiffTagCommand(v *viper.Viper, streams Streams) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "diff-tag <tag-url> [output-file]",
		Short: "List the commits in a release tag that HEAD does not have",
		Long: `Fetch the repository behind a GitHub release tag URL into an
upstream_<owner>_<repo> remote and write the commits reachable from the tag
but not from HEAD to [output-file] (default remote-only-commits.txt), oldest
first. With --apply the commits are replayed straight away.`,
		Example: `  cherry-pick-replay diff-tag https://github.com/rancher/rancher/releases/tag/v2.9.1
  cherry-pick-replay diff-tag https://github.com/rancher/rancher/releases/tag/v2.9.1 v2.9.1.txt --apply`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newRunner(v, streams)
			if err != nil {
				return err
			}
			output := ""
			if len(args) == 2 {
				output = args[1]
			}
			return runner.DiffTag(cmd.Context(), args[0], output, apply)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "replay the commits after writing the list")
	return cmd
}
