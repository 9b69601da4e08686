package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/checker"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <monitor-id>",
	Short: "Pause a monitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(args[0], false)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <monitor-id>",
	Short: "Resume a paused monitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(args[0], true)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <monitor-id>",
	Short: "Delete a monitor and its check history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, err := store.GetMonitor(ctx, args[0])
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("monitor not found: %s", args[0])
		}
		if err := store.DeleteMonitor(ctx, m.ID); err != nil {
			return err
		}
		artifacts, err := checker.NewArtifactStore(cfg.ArtifactDir)
		if err == nil {
			if err := artifacts.DeleteAll(m.ID); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to remove artifacts: %v\n", err)
			}
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s removed monitor %s\n", green("✓"), m.ID)
		return nil
	},
}

func setActive(id string, active bool) error {
	ctx := context.Background()
	m, err := store.GetMonitor(ctx, id)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("monitor not found: %s", id)
	}
	if err := store.SetActive(ctx, m.ID, active); err != nil {
		return err
	}
	state := "paused"
	if active {
		state = "resumed"
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s %s monitor %s\n", green("✓"), state, m.ID)
	return nil
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(removeCmd)
}
