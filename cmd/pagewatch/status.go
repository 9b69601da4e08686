package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/checker"
	"github.com/pagewatch/pagewatch/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status <monitor-id>",
	Short: "Show a monitor's recent check history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := context.Background()
		m, err := store.GetMonitor(ctx, args[0])
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("monitor not found: %s", args[0])
		}

		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.Faint).SprintFunc()

		name := m.Name
		if name == "" {
			name = m.URL
		}
		fmt.Printf("%s (%s)\n", name, m.ID)
		fmt.Printf("  url:      %s\n", m.URL)
		fmt.Printf("  selector: %s\n", m.Selector)
		fmt.Printf("  kind:     %s  interval: %s\n", m.Kind, m.Interval)
		if m.ConsecutiveFailures > 0 {
			policy := checker.DefaultFailurePolicy()
			line := yellow(fmt.Sprintf("failing x%d", m.ConsecutiveFailures))
			if policy.InCooldown(m) {
				line += gray(fmt.Sprintf(" (cooldown %s)", policy.Cooldown(m.ConsecutiveFailures)))
			}
			fmt.Printf("  state:    %s\n", line)
		}

		checks, err := store.GetChecks(ctx, m.ID, limit)
		if err != nil {
			return err
		}
		if len(checks) == 0 {
			fmt.Println("\nNo checks yet.")
			return nil
		}

		fmt.Println()
		for _, c := range checks {
			mark := gray("·")
			switch c.Status {
			case types.StatusChanged:
				mark = yellow("!")
			case types.StatusError:
				mark = red("✗")
			}
			fmt.Printf("%s %s %s", mark, c.CreatedAt.Format("2006-01-02 15:04:05"), c.Status)
			if c.Error != "" {
				fmt.Printf("  %s", red(c.Error))
			}
			if c.Summary != "" {
				fmt.Printf("  %s", c.Summary)
			}
			fmt.Println()
			if c.DiffText != "" {
				fmt.Printf("    %s\n", gray(truncateValue(c.DiffText, 200)))
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 10, "number of checks to show")
	rootCmd.AddCommand(statusCmd)
}
