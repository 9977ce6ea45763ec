package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"battrack/internal/daemon"
	"battrack/internal/logging"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "daemon",
		Short:        "Run the battrack daemon",
		Long:         "Run the ledger, print queue, and bus router as a long-running process.\nAt most one instance runs per data directory.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger.Info("battrack daemon starting", "version", version)

			d, err := daemon.New(cfg, version, logger)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			return d.Run(signalCtx)
		},
	}
}
