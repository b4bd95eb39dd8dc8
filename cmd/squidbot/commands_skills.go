package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildSkillsCmd is the "skills" command group; spec §6 names only
// "skills list".
func buildSkillsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Manage discovered skills",
	}
	cmd.AddCommand(buildSkillsListCmd(configPath))
	return cmd
}

func buildSkillsListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}

			skills, err := rt.skills.ListSkills()
			if err != nil {
				return fmt.Errorf("list skills: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(skills) == 0 {
				fmt.Fprintln(out, "no skills discovered")
				return nil
			}
			for _, sk := range skills {
				marker := ""
				if sk.Always {
					marker = " (always)"
				}
				fmt.Fprintf(out, "%s%s - %s\n", sk.Name, marker, sk.Description)
			}
			return nil
		},
	}
}
