package cmd

import (
	"fmt"
	"os"

	"musicapi/config"
	"musicapi/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "musicapi",
	Short: "musicapi serves a catalog of music tracks over HTTP.",
	Long: `musicapi is a REST service for creating, reading, updating and deleting
music tracks, with danceability and energy ranking reports.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes the logger for a subcommand.
func setup() (*config.Config, error) {
	cfg := config.Load()
	if err := logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
