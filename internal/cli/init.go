package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/AssetRecon/internal/core/tables"
)

func newInitCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and a reference file with the inventory fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(a.cfg.Pipeline.DataDir, 0o755); err != nil {
				return err
			}

			path := a.cfg.Pipeline.Path(a.cfg.Pipeline.ReferenceFile)
			flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(path, flags, 0o644)
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err != nil {
				return err
			}

			_, err = f.WriteString(strings.Join(tables.Fields, ",") + "\n")
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s with %d fields\n", path, len(tables.Fields))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing reference file")
	return cmd
}
