package remount

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sidkik/snowxfer/cmd/util"
	"github.com/sidkik/snowxfer/pkg/disk"
	"github.com/sidkik/snowxfer/pkg/errors"
	"github.com/sidkik/snowxfer/pkg/runner"
)

// Mocked for unit testing.
var newRunner = func() runner.Runner { return runner.New() }

// New creates a new `remount` command.
func New() *cobra.Command {
	var r disk.Range
	cmd := &cobra.Command{
		Use:   "remount",
		Short: "Remount source drives read-only",
		Long: "Remount the data partition of each disk in a range read-only, so that\n" +
			"the drives can't be modified while they're transferred. If --maxdisk\n" +
			"isn't set, only --disk is remounted.",
		Run: func(cmd *cobra.Command, _ []string) {
			if !cmd.Flags().Changed("maxdisk") {
				r.Last = r.First
			}
			if err := run(context.Background(), r); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().IntVarP(&r.First, "disk", "d", 0, "First disk number to remount")
	cmd.Flags().IntVarP(&r.Last, "maxdisk", "m", 0, "Last disk number to remount")
	if err := cmd.MarkFlagRequired("disk"); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, r disk.Range) error {
	if err := (disk.Remounter{Runner: newRunner()}).RemountReadOnly(ctx, r); err != nil {
		return errors.WithContext(err, "remount")
	}
	return nil
}
