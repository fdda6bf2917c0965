package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

func newReportCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the last run report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := core.LoadReport(a.cfg.Pipeline.Path(a.cfg.Pipeline.ReportFile))
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%s: %w", core.FormatUserError(core.ErrNoReport), core.ErrNoReport)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return yaml.NewEncoder(out).Encode(report)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	return cmd
}
