package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// buildGatewayCmd starts every enabled channel and the cron scheduler,
// running until the process receives an interrupt. No heartbeat task is
// started: buildGateway does not call Gateway.WithHeartbeat, and the
// config file has no heartbeat settings.
func buildGatewayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start all enabled channels and the cron scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}

			chans := buildChannels(cfg, rt.logger)
			if len(chans) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: no channels are enabled in config; the gateway will only run the cron scheduler")
			}

			gw := buildGateway(rt, chans)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rt.logger.Info("gateway starting", "channels", len(chans))
			return gw.Run(ctx)
		},
	}
}
