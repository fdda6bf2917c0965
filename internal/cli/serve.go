package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/AssetRecon/internal/core"
	"github.com/JonMunkholm/AssetRecon/internal/web"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and status page",
		Long: `Starts the HTTP server. When PIPELINE_SCHEDULE_INTERVAL is set the pipeline
also runs periodically. Stops gracefully when the context is cancelled,
waiting for an in-flight run up to SERVER_SHUTDOWN_TIMEOUT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			p, closeSink, err := a.openPipeline(ctx, true)
			if err != nil {
				return err
			}
			defer closeSink()

			server := web.NewServer(p, a.cfg)

			jobCtx, cancelJobs := context.WithCancel(ctx)
			defer cancelJobs()
			go core.StartScheduler(jobCtx, p, a.cfg.Pipeline.ScheduleInterval)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			cancelJobs()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if p.Limiter().ActiveCount() > 0 {
				slog.Info("waiting for the running pipeline to finish")
				if err := p.Limiter().WaitForDrain(shutdownCtx); err != nil {
					slog.Warn("pipeline run did not finish in time", "error", err)
				}
			}

			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return <-errCh
		},
	}
}
