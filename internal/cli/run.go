package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Long: `Merges every source CSV in the data directory, validates and deduplicates
the records, writes the merged, result and deleted files and publishes them
to the configured sink.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := core.ContextWithTrigger(cmd.Context(), core.TriggerCLI)

			p, closeSink, err := a.openPipeline(ctx, true)
			if err != nil {
				return err
			}
			defer closeSink()

			report, err := p.Run(ctx)
			if report != nil {
				printSummary(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
			}
			return nil
		},
	}
}

// printSummary writes a human-readable digest of report.
func printSummary(w io.Writer, r *core.RunReport) {
	fmt.Fprintf(w, "Run %s (%s) took %s\n", r.RunID, r.Trigger, r.Duration)
	for _, src := range r.Sources {
		switch {
		case src.Error != "":
			fmt.Fprintf(w, "  %-30s failed: %s\n", src.Name, src.Error)
		case src.Truncated && src.ReadPercent > 0:
			fmt.Fprintf(w, "  %-30s %d rows (truncated, %d%% of file read)\n", src.Name, src.Rows, src.ReadPercent)
		case src.Truncated:
			fmt.Fprintf(w, "  %-30s %d rows (truncated)\n", src.Name, src.Rows)
		default:
			fmt.Fprintf(w, "  %-30s %d rows\n", src.Name, src.Rows)
		}
	}

	c := r.Counts
	fmt.Fprintf(w, "Merged %d, valid %d, invalid %d\n", c.Merged, c.Valid, c.Invalid)
	if r.Dedupe {
		fmt.Fprintf(w, "Duplicate groups %d of %d, demoted %d\n", c.DuplicateGroups, c.Groups, c.Demoted)
	}
	fmt.Fprintf(w, "Final %d\n", c.Final)

	if r.Sink.Name != "" {
		fmt.Fprintf(w, "Published to %s: %v\n", r.Sink.Name, r.Sink.Published)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
}
