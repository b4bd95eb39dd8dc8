package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/local/squidbot/pkg/models"
)

// buildCronCmd is the "cron" command group (spec §6: "cron list | add |
// remove <id> | set-enabled <id> <bool> — manage jobs").
func buildCronCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage scheduled cron jobs",
	}
	cmd.AddCommand(
		buildCronListCmd(configPath),
		buildCronAddCmd(configPath),
		buildCronRemoveCmd(configPath),
		buildCronSetEnabledCmd(configPath),
	)
	return cmd
}

func buildCronListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured cron jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			jobs, err := rt.store.LoadCronJobs()
			if err != nil {
				return fmt.Errorf("load cron jobs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "no cron jobs configured")
				return nil
			}
			for _, j := range jobs {
				state := "enabled"
				if !j.Enabled {
					state = "disabled"
				}
				fmt.Fprintf(out, "%s  %-20s  %-20s  %-10s  -> %s\n", j.ID, j.Name, j.Schedule, state, j.Channel)
			}
			return nil
		},
	}
}

func buildCronAddCmd(configPath *string) *cobra.Command {
	var name, schedule, message, target, timezone string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new cron job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" || message == "" || target == "" {
				return fmt.Errorf("--schedule, --message, and --channel are required")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			jobs, err := rt.store.LoadCronJobs()
			if err != nil {
				return fmt.Errorf("load cron jobs: %w", err)
			}
			job := models.CronJob{
				ID:       uuid.NewString(),
				Name:     name,
				Schedule: schedule,
				Message:  message,
				Channel:  target,
				Enabled:  true,
				Timezone: timezone,
			}
			jobs = append(jobs, job)
			if err := rt.store.SaveCronJobs(jobs); err != nil {
				return fmt.Errorf("save cron jobs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added job %s\n", job.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Human-readable job name")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Five-field cron expression or \"every N\" (seconds)")
	cmd.Flags().StringVar(&message, "message", "", "Message to send into the agent loop when the job fires")
	cmd.Flags().StringVar(&target, "channel", "", "Target session in \"channel:sender_id\" form, e.g. cli:local")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone name (default UTC)")
	return cmd
}

func buildCronRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a cron job by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			jobs, err := rt.store.LoadCronJobs()
			if err != nil {
				return fmt.Errorf("load cron jobs: %w", err)
			}
			id := args[0]
			kept := jobs[:0]
			found := false
			for _, j := range jobs {
				if j.ID == id {
					found = true
					continue
				}
				kept = append(kept, j)
			}
			if !found {
				return fmt.Errorf("no cron job with id %q", id)
			}
			if err := rt.store.SaveCronJobs(kept); err != nil {
				return fmt.Errorf("save cron jobs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed job %s\n", id)
			return nil
		},
	}
}

func buildCronSetEnabledCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-enabled <id> <true|false>",
		Short: "Enable or disable a cron job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			var enabled bool
			switch args[1] {
			case "true":
				enabled = true
			case "false":
				enabled = false
			default:
				return fmt.Errorf("second argument must be \"true\" or \"false\", got %q", args[1])
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			jobs, err := rt.store.LoadCronJobs()
			if err != nil {
				return fmt.Errorf("load cron jobs: %w", err)
			}
			found := false
			for i := range jobs {
				if jobs[i].ID == id {
					jobs[i].Enabled = enabled
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("no cron job with id %q", id)
			}
			if err := rt.store.SaveCronJobs(jobs); err != nil {
				return fmt.Errorf("save cron jobs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s enabled=%v\n", id, enabled)
			return nil
		},
	}
}
