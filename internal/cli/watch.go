package cli

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/AssetRecon/internal/core"
	"github.com/JonMunkholm/AssetRecon/internal/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	var initial bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline whenever a source CSV changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			p, closeSink, err := a.openPipeline(ctx, true)
			if err != nil {
				return err
			}
			defer closeSink()

			if initial {
				report, err := p.Run(core.ContextWithTrigger(ctx, core.TriggerWatch))
				if report != nil {
					printSummary(cmd.OutOrStdout(), report)
				}
				if err != nil {
					cmd.PrintErrln(core.FormatUserError(err))
				}
			}

			opts := p.Options()
			w := watch.New(opts.DataDir, a.cfg.Watch.Debounce, p,
				opts.ReferenceFile, opts.MergedFile, opts.ResultFile, opts.DeletedFile)
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&initial, "initial", true, "run once before watching")
	return cmd
}
