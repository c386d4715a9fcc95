package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/sshwatch/internal/app"
	"github.com/hamed0406/sshwatch/internal/config"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
	"github.com/hamed0406/sshwatch/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✖", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sshwatch",
		Short: "Watch SSH endpoints and report availability changes to Telegram",
		Long: `sshwatch probes every endpoint in the hosts file, records whether its
SSH service answers and notifies the subscribers in the admins file
whenever an endpoint goes down or comes back. /status in a chat with the
bot returns the current view.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(parent context.Context, cfg config.Config) error {
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return serrors.WrapWithCode(err, serrors.ErrConfig, "Cannot open log directory "+cfg.LogDir, "Check --log-dir")
	}
	defer func() { _ = logger.Sync() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("startup_failed", zap.String("class", serrors.Code(err)), zap.Error(err))
		return err
	}

	logger.Info("sshwatch_started",
		zap.String("hosts_file", cfg.HostsFile),
		zap.String("subscribers_file", cfg.SubscribersFile),
		zap.Duration("interval", cfg.Interval),
		zap.String("http_addr", cfg.HTTPAddr),
	)
	err = a.Run(ctx)
	logger.Info("sshwatch_stopped")
	return err
}
