package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitors",
	RunE: func(cmd *cobra.Command, args []string) error {
		activeOnly, _ := cmd.Flags().GetBool("active")

		monitors, err := store.ListMonitors(context.Background(), activeOnly)
		if err != nil {
			return err
		}
		if len(monitors) == 0 {
			fmt.Println("No monitors.")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.Faint).SprintFunc()

		for _, m := range monitors {
			state := green("active")
			if !m.Active {
				state = gray("paused")
			}
			if m.ConsecutiveFailures > 0 {
				state = yellow(fmt.Sprintf("failing x%d", m.ConsecutiveFailures))
			}
			name := m.Name
			if name == "" {
				name = m.URL
			}
			fmt.Printf("%s  %s  [%s/%s]  %s\n", gray(m.ID[:8]), name, m.Kind, m.Interval, state)
			fmt.Printf("         %s %s\n", gray(m.URL), gray(m.Selector))
			if m.LastCheck == nil {
				fmt.Printf("         %s\n", gray("never checked"))
				continue
			}
			last, err := store.GetLatestCheck(context.Background(), m.ID)
			if err != nil {
				return err
			}
			if last == nil {
				continue
			}
			status := string(last.Status)
			if last.Status == types.StatusError {
				status = red(fmt.Sprintf("error: %s", last.Error))
			}
			fmt.Printf("         last check %s: %s\n", m.LastCheck.Format("2006-01-02 15:04"), status)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("active", false, "show only active monitors")
	rootCmd.AddCommand(listCmd)
}
