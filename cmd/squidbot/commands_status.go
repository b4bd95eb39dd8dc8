package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildStatusCmd prints a configuration summary (spec §6: "status —
// print configuration summary"). Grounded loosely on the teacher's
// buildStatusCmd section layout, trimmed to what this runtime actually
// has: base directory, configured models, enabled channels, skills.
func buildStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print a configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "base directory: %s\n", cfg.BaseDir)

			fmt.Fprintln(out, "channels:")
			if cfg.Channels.CLI != nil && cfg.Channels.CLI.Enabled {
				fmt.Fprintf(out, "  cli: enabled (sender=%s)\n", cfg.Channels.CLI.Sender)
			}
			if cfg.Channels.Slack != nil && cfg.Channels.Slack.Enabled {
				fmt.Fprintln(out, "  slack: enabled")
			}
			if (cfg.Channels.CLI == nil || !cfg.Channels.CLI.Enabled) && (cfg.Channels.Slack == nil || !cfg.Channels.Slack.Enabled) {
				fmt.Fprintln(out, "  (none enabled)")
			}

			fmt.Fprintln(out, "models:")
			if cfg.LLM.Anthropic != nil && cfg.LLM.Anthropic.APIKey != "" {
				fmt.Fprintf(out, "  anthropic: %s\n", cfg.LLM.Anthropic.Model)
			}
			if cfg.LLM.OpenAI != nil && cfg.LLM.OpenAI.APIKey != "" {
				fmt.Fprintf(out, "  openai: %s\n", cfg.LLM.OpenAI.Model)
			}

			jobs, err := rt.store.LoadCronJobs()
			if err != nil {
				return fmt.Errorf("load cron jobs: %w", err)
			}
			fmt.Fprintf(out, "cron jobs: %d\n", len(jobs))

			skills, err := rt.skills.ListSkills()
			if err != nil {
				return fmt.Errorf("list skills: %w", err)
			}
			fmt.Fprintf(out, "skills: %d\n", len(skills))

			return nil
		},
	}
}
