package main

import (
	"log/slog"
	"os"

	"github.com/neurokit/neurokit-go/cmd"
	"github.com/neurokit/neurokit-go/internal/conf"
	"github.com/neurokit/neurokit-go/internal/logging"
	"github.com/neurokit/neurokit-go/internal/observability"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("error loading configuration", "error", err)
	}

	if settings.Main.Log.Enabled {
		fileLogger, closeLog, err := logging.NewFileLogger(settings.Main.Log.Path, "main", slog.LevelInfo)
		if err != nil {
			logging.Warn("file logging disabled", "path", settings.Main.Log.Path, "error", err)
		} else {
			slog.SetDefault(fileLogger)
			defer func() { _ = closeLog() }()
		}
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		logging.Fatal("error creating metrics", "error", err)
	}

	if settings.Observability.Enabled {
		go func() {
			if err := metrics.Serve(settings.Observability.Listen); err != nil {
				logging.Error("metrics server stopped", "error", err)
			}
		}()
	}

	rootCmd := cmd.RootCommand(settings, metrics)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
