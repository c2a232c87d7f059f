package cmd

import (
	"fmt"
	"time"

	"amalgam/pkg/amalgam"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// mergeCmd is the explicit form of the default action.
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Write the amalgamated header",
	Long: `Merge the entry fragment and every fragment it includes into the output file.
With --check nothing is written; the command fails when the output is stale.
With --watch the output is rebuilt whenever a fragment changes.`,
	Args: cobra.NoArgs,
	RunE: runMerge,
}

func init() {
	RootCmd.AddCommand(mergeCmd)
}

// runMerge dispatches to a plain, check or watch run.
func runMerge(cmd *cobra.Command, _ []string) error {
	args, err := resolveArguments(cmd)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ctx := cmd.Context()

	switch {
	case flags.check && flags.watch:
		return fmt.Errorf("--check and --watch cannot be combined")
	case flags.check:
		_, err := amalgam.Check(ctx, args, logger)
		return err
	case flags.watch:
		debounce, err := time.ParseDuration(flags.debounce)
		if err != nil {
			return fmt.Errorf("invalid --debounce: %w", err)
		}
		return amalgam.Watch(ctx, args, debounce, logger)
	default:
		report, err := amalgam.Run(ctx, args, logger)
		if err != nil {
			return err
		}
		logger.Debug("Visited fragments", zap.Int("count", len(report.Visits)))
		return nil
	}
}
