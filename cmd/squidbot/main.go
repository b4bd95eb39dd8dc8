// Package main provides the CLI entry point for squidbot, a personal AI
// assistant runtime. Grounded on haasonsaas-nexus/cmd/nexus/main.go's
// command-tree shape (buildRootCmd assembling one cobra.Command per
// subcommand, SilenceUsage, a persistent --config flag), trimmed to the
// CLI surface spec.md §6 names: onboard, agent, gateway, status,
// cron …, skills list.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "squidbot",
		Short:   "squidbot - a personal AI assistant runtime",
		Version: fmt.Sprintf("%s (commit %s)", version, commit),
		// SilenceUsage keeps a failing RunE from dumping the full usage text.
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default: $SQUIDBOT_CONFIG or $HOME/.squidbot/config.yaml)")

	rootCmd.AddCommand(
		buildOnboardCmd(&configPath),
		buildAgentCmd(&configPath),
		buildGatewayCmd(&configPath),
		buildStatusCmd(&configPath),
		buildCronCmd(&configPath),
		buildSkillsCmd(&configPath),
	)

	return rootCmd
}
