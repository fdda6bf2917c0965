package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

func newValidateCommand(a *app) *cobra.Command {
	var (
		strict      bool
		invalidOnly bool
	)

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate one CSV file without writing any output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeSink, err := a.openPipeline(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeSink()

			records, verdicts, src, err := p.ValidateSource(cmd.Context(), core.FileSource{Path: args[0]})
			if err != nil {
				return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for i, v := range verdicts {
				if v.Valid {
					if !invalidOnly {
						fmt.Fprintf(out, "line %d: valid\n", records[i].Line)
					}
					continue
				}
				invalid++
				fmt.Fprintf(out, "line %d: invalid: %s\n", records[i].Line, strings.Join(v.Reasons(), "; "))
			}

			if len(src.Missing) > 0 {
				fmt.Fprintf(out, "missing columns: %s\n", strings.Join(src.Missing, ", "))
			}
			if len(src.Extra) > 0 {
				fmt.Fprintf(out, "ignored columns: %s\n", strings.Join(src.Extra, ", "))
			}
			if src.Truncated {
				fmt.Fprintf(out, "only the first %d rows were read\n", src.Rows)
			}
			fmt.Fprintf(out, "%d records, %d valid, %d invalid\n", len(verdicts), len(verdicts)-invalid, invalid)

			if strict && invalid > 0 {
				return fmt.Errorf("%d invalid records", invalid)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any record is invalid")
	cmd.Flags().BoolVar(&invalidOnly, "invalid-only", false, "print only invalid records")
	return cmd
}
