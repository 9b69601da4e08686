package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/ai"
	"github.com/pagewatch/pagewatch/internal/api"
	"github.com/pagewatch/pagewatch/internal/browser"
	"github.com/pagewatch/pagewatch/internal/checker"
	"github.com/pagewatch/pagewatch/internal/notify"
	"github.com/pagewatch/pagewatch/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the monitor check loop",
	Long: `Start the scheduler that periodically checks all active monitors.

Each tick the scheduler:
1. Loads all active monitors
2. Computes the due set from intervals and failure cooldowns
3. Dispatches due monitors through a bounded worker set
4. Runs each check against an overall time budget

Stop with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noAI, _ := cmd.Flags().GetBool("no-ai")

		ctx := context.Background()

		br, err := browser.NewChrome(ctx, &browser.ChromeConfig{
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Browser.UserAgent,
			Width:     1280,
			Height:    900,
		})
		if err != nil {
			return fmt.Errorf("failed to launch browser: %w", err)
		}
		defer func() {
			if err := br.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to close browser: %v\n", err)
			}
		}()

		pool := browser.NewPool(br, &browser.PoolConfig{
			MaxContexts: cfg.Browser.MaxContexts,
			IdleTTL:     cfg.Browser.IdleTTL,
		})
		defer func() {
			if err := pool.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to close browser pool: %v\n", err)
			}
		}()

		pipeline, err := buildPipeline(pool, !noAI)
		if err != nil {
			return err
		}

		sched := scheduler.New(store, pipeline, &scheduler.Config{
			TickInterval: cfg.Scheduler.TickInterval,
			Concurrency:  cfg.Scheduler.Concurrency,
			CheckTimeout: cfg.Scheduler.CheckTimeout,
			HealthWindow: cfg.Scheduler.HealthWindow,
			Policy: &checker.FailurePolicy{
				Threshold:    cfg.Scheduler.FailureThreshold,
				BaseCooldown: cfg.Scheduler.BaseCooldown,
				MaxCooldown:  cfg.Scheduler.MaxCooldown,
			},
		})
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		var healthSrv *api.Server
		if cfg.HealthAddr != "" {
			healthSrv = api.NewServer(cfg.HealthAddr, sched)
			healthSrv.Start()
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s pagewatch is running\n", green("✓"))

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Printf("\nShutting down...\n")

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if healthSrv != nil {
			if err := healthSrv.Stop(stopCtx); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to stop health server: %v\n", err)
			}
		}
		if err := sched.Stop(stopCtx); err != nil {
			return fmt.Errorf("failed to stop scheduler: %w", err)
		}
		return nil
	},
}

// buildPipeline wires the check pipeline with or without AI collaborators
func buildPipeline(pool *browser.Pool, enableAI bool) (*checker.Pipeline, error) {
	artifacts, err := checker.NewArtifactStore(cfg.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	var healer checker.Healer
	var summarizer checker.Summarizer
	if enableAI && cfg.AI.Enabled {
		assistant, err := ai.New(&ai.Config{
			Model:        cfg.AI.Model,
			SummaryModel: cfg.AI.SummaryModel,
		})
		if err != nil {
			// Missing API key degrades to no AI assistance rather than
			// refusing to run
			fmt.Fprintf(os.Stderr, "warning: AI assistance disabled: %v\n", err)
		} else {
			healer = assistant
			summarizer = assistant
		}
	}

	pipelineCfg := checker.DefaultConfig()
	pipelineCfg.HistoryKeep = cfg.Pipeline.HistoryKeep
	pipelineCfg.HostMinInterval = cfg.Pipeline.HostMinInterval
	pipelineCfg.VisualTolerance = uint8(cfg.Pipeline.VisualTolerance)

	return checker.NewPipeline(store, pool, artifacts, healer, summarizer, &notify.LogDispatcher{}, pipelineCfg), nil
}

func init() {
	runCmd.Flags().Bool("no-ai", false, "disable AI selector repair and summarization")
	rootCmd.AddCommand(runCmd)
}
