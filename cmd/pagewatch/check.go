package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/browser"
	"github.com/pagewatch/pagewatch/internal/types"
)

var checkCmd = &cobra.Command{
	Use:   "check <monitor-id>",
	Short: "Run one check for a monitor immediately",
	Long: `Run a single check for the given monitor outside the schedule.

The check uses the same pipeline as the scheduler. The per-monitor
in-flight guard only covers checks within one process, so avoid manual
checks against a monitor while the run daemon is working on it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noAI, _ := cmd.Flags().GetBool("no-ai")
		ctx := context.Background()

		m, err := store.GetMonitor(ctx, args[0])
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("monitor %s not found", args[0])
		}

		br, err := browser.NewChrome(ctx, &browser.ChromeConfig{
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Browser.UserAgent,
			Width:     1280,
			Height:    900,
		})
		if err != nil {
			return fmt.Errorf("failed to launch browser: %w", err)
		}
		defer br.Close()

		pool := browser.NewPool(br, &browser.PoolConfig{MaxContexts: 1})
		defer pool.Close()

		pipeline, err := buildPipeline(pool, !noAI)
		if err != nil {
			return err
		}

		checkCtx, cancel := context.WithTimeout(ctx, cfg.Scheduler.CheckTimeout)
		defer cancel()

		rec, err := pipeline.Run(checkCtx, m)
		if err != nil {
			red := color.New(color.FgRed).SprintFunc()
			if rec != nil {
				fmt.Printf("%s check failed: %s\n", red("✗"), rec.Error)
				return nil
			}
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		switch rec.Status {
		case types.StatusChanged:
			fmt.Printf("%s change detected\n", yellow("!"))
			if rec.Summary != "" {
				fmt.Printf("  summary: %s\n", rec.Summary)
			}
			if rec.DiffText != "" {
				fmt.Printf("  diff: %s\n", rec.DiffText)
			}
		default:
			fmt.Printf("%s no change\n", green("✓"))
		}
		fmt.Printf("  value: %s\n", truncateValue(rec.Value, 200))
		fmt.Printf("  screenshot: %s\n", rec.Screenshot)
		return nil
	},
}

func truncateValue(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func init() {
	checkCmd.Flags().Bool("no-ai", false, "disable AI selector repair and summarization")
	rootCmd.AddCommand(checkCmd)
}
