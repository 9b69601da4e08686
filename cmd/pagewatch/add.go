package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pagewatch/pagewatch/internal/types"
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a monitor",
	Long: `Add a monitor for a URL. The full monitor management surface lives in
the dashboard; this command covers what is needed to operate the check
engine stand-alone.

Examples:
  pagewatch add https://example.com/pricing --selector ".price" --interval 1h
  pagewatch add https://example.com --selector "body" --kind visual --interval 1d
  pagewatch add https://shop.example.com/item --selector ".stock" \
    --keyword "out of stock:appears" --notify contains --threshold "out of stock"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		selector, _ := cmd.Flags().GetString("selector")
		kind, _ := cmd.Flags().GetString("kind")
		interval, _ := cmd.Flags().GetString("interval")
		notifyMode, _ := cmd.Flags().GetString("notify")
		threshold, _ := cmd.Flags().GetString("threshold")
		keywords, _ := cmd.Flags().GetStringArray("keyword")
		aiOnly, _ := cmd.Flags().GetBool("ai-only")
		aiPrompt, _ := cmd.Flags().GetString("ai-prompt")

		m := &types.Monitor{
			Name:     name,
			URL:      args[0],
			Selector: selector,
			Kind:     types.MonitorKind(kind),
			Interval: types.Interval(interval),
			Notify: types.NotifyRule{
				Mode:      types.NotifyMode(notifyMode),
				Threshold: threshold,
			},
			AIOnly:   aiOnly,
			AIPrompt: aiPrompt,
			Active:   true,
		}
		for _, kw := range keywords {
			keyword, err := parseKeyword(kw)
			if err != nil {
				return err
			}
			m.Keywords = append(m.Keywords, keyword)
		}

		if err := store.CreateMonitor(context.Background(), m); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s created monitor %s\n", green("✓"), m.ID)
		return nil
	},
}

// parseKeyword parses "text:mode"; mode defaults to any
func parseKeyword(s string) (types.Keyword, error) {
	text := s
	mode := types.KeywordAny
	if i := strings.LastIndexByte(s, ':'); i > 0 {
		candidate := types.KeywordMode(s[i+1:])
		if candidate.IsValid() {
			text = s[:i]
			mode = candidate
		}
	}
	if text == "" {
		return types.Keyword{}, fmt.Errorf("keyword text is required")
	}
	return types.Keyword{Text: text, Mode: mode}, nil
}

func init() {
	addCmd.Flags().String("name", "", "display name")
	addCmd.Flags().String("selector", "body", "CSS selector for the tracked fragment")
	addCmd.Flags().String("kind", "text", "detection kind: text or visual")
	addCmd.Flags().String("interval", "1h", "check interval: 1m, 5m, 15m, 30m, 1h, 3h, 6h, 12h, 1d, 1w")
	addCmd.Flags().String("notify", "always", "notify rule: always, contains, not_contains, value_lt, value_gt, ai_focus")
	addCmd.Flags().String("threshold", "", "threshold for the notify rule")
	addCmd.Flags().StringArray("keyword", nil, "keyword watch as text:mode (mode: appears, disappears, any); repeatable")
	addCmd.Flags().Bool("ai-only", false, "only report changes the AI judges significant")
	addCmd.Flags().String("ai-prompt", "", "narrow what the AI considers significant")
	rootCmd.AddCommand(addCmd)
}
