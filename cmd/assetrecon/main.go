package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/AssetRecon/internal/cli"
	"github.com/JonMunkholm/AssetRecon/internal/config"
	"github.com/JonMunkholm/AssetRecon/internal/logging"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded",
		"env_file", envLoaded,
		"data_dir", cfg.Pipeline.DataDir,
		"sink", cfg.Sink.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}
