package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// buildOnboardCmd is the idempotent setup-wizard stub (spec §1 Non-goals:
// "the interactive setup wizard" is an external collaborator with an
// interface only). Running it twice must be a no-op the second time
// (spec §6 exit codes: 0 on success), so it only ever creates the file if
// absent and never overwrites an existing configuration.
func buildOnboardCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Create a default config.yaml if one does not already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolve home directory: %w", err)
				}
				path = filepath.Join(home, ".squidbot", "config.yaml")
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "config already present at %s, leaving it untouched\n", path)
				return nil
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(out, "wrote a starter config to %s\n", path)
			fmt.Fprintln(out, "edit it to add your API keys, or set SQUIDBOT_ANTHROPIC_API_KEY / SQUIDBOT_OPENAI_API_KEY")
			return nil
		},
	}
}

const defaultConfigTemplate = `# squidbot configuration. See SQUIDBOT_* environment variables for secrets.
channels:
  cli:
    enabled: true
    sender: local
llm:
  anthropic:
    model: claude-sonnet-4-5
    max_tokens: 4096
skills:
  directories: []
cron: []
`
