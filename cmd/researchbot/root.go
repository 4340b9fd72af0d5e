package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"ResearchDigest/internal/app"
	"ResearchDigest/internal/config"
	"ResearchDigest/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "researchbot",
	Short: "Research digest bot for Slack",
	Long: `Searches arXiv for configured topics, summarizes new papers with an LLM
and posts digests to Slack channels on a daily or weekly schedule.`,
	SilenceUsage: true,
}

// withApp loads configuration, builds the application and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, application *app.Application, log *slog.Logger) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}

	runErr := fn(ctx, application, logger)
	if err := application.Close(); err != nil {
		logger.Error("shutdown failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
