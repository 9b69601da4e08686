package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/types"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query the health endpoint of a running pagewatch daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.HealthAddr
		if addr == "" {
			return fmt.Errorf("health endpoint disabled (health_addr is empty)")
		}
		if addr[0] == ':' {
			addr = "localhost" + addr
		}

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get("http://" + addr + "/healthz")
		if err != nil {
			return fmt.Errorf("daemon unreachable at %s: %w", addr, err)
		}
		defer resp.Body.Close()

		var status types.HealthStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return fmt.Errorf("failed to decode health response: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		if status.Healthy {
			fmt.Printf("%s healthy\n", green("✓"))
		} else {
			fmt.Printf("%s unhealthy\n", red("✗"))
		}
		if status.LastSuccessfulCheck != nil {
			fmt.Printf("  last successful check: %s (%s ago)\n",
				status.LastSuccessfulCheck.Format("2006-01-02 15:04:05"),
				time.Since(*status.LastSuccessfulCheck).Round(time.Second))
		} else {
			fmt.Println("  last successful check: never")
		}
		fmt.Printf("  errors: %d\n", status.ErrorCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
