package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/local/squidbot/internal/agent"
	"github.com/local/squidbot/internal/channel"
	"github.com/local/squidbot/internal/registry"
	"github.com/local/squidbot/internal/tools"
	"github.com/local/squidbot/pkg/models"
)

// buildAgentCmd runs a single interactive session on the terminal
// channel; -m sends one message and exits (spec §6).
func buildAgentCmd(configPath *string) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start a single interactive session on the terminal channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}

			sender := "local"
			if cfg.Channels.CLI != nil && cfg.Channels.CLI.Sender != "" {
				sender = cfg.Channels.CLI.Sender
			}
			term := channel.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), sender, rt.logger)
			session := models.Session{Channel: term.Name(), SenderID: sender}

			if message != "" {
				rt.loop.Run(cmd.Context(), session, message, term, agent.RunOptions{
					ExtraTools: []registry.Tool{tools.NewMemoryWriteTool(rt.store, session.ID())},
				})
				return nil
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			inbound, err := term.Receive(ctx)
			if err != nil {
				return err
			}
			for msg := range inbound {
				rt.loop.Run(ctx, msg.Session, msg.Text, term, agent.RunOptions{
					ExtraTools: []registry.Tool{tools.NewMemoryWriteTool(rt.store, msg.Session.ID())},
				})
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send one message and exit instead of starting an interactive session")
	return cmd
}
