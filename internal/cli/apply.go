package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newApplyCommand(v *viper.Viper, streams Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <commits-file>",
		Short: "Cherry-pick the commits listed in a file, oldest first",
		Long: `Cherry-pick every commit listed in <commits-file> onto the current branch.

Text lists take the hash at the start of each line and ignore '#' comments.
When the file has an "oldest first" section, as written by diff-tag, only that
section is used. Files ending in .yaml or .yml hold a commits list of sha entries.`,
		Example: `  cherry-pick-replay apply remote-only-commits.txt
  cherry-pick-replay apply --start-from 4f1c2d3 remote-only-commits.txt
  cherry-pick-replay apply --dry-run picks.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newRunner(v, streams)
			if err != nil {
				return err
			}
			return runner.Apply(cmd.Context(), args[0])
		},
	}
}
