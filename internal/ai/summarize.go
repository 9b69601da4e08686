package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Judgment is the structured result of a summarization call. The model
// is asked for an explicit significance boolean alongside the summary so
// the control decision is never derived from prose. Phrase matching is
// kept only as a fallback for responses that come back as plain text.
type Judgment struct {
	Summary     string `json:"summary"`
	Significant bool   `json:"significant"`
}

const judgmentInstructions = `Respond with a JSON object and nothing else:
{"summary": "<one or two sentences describing what changed>", "significant": <true if the change matters to someone watching this content, false for noise like timestamps, ads, or session tokens>}`

// SummarizeText judges a text change. userPrompt optionally narrows what
// the user considers significant (e.g. "only price changes").
func (a *Assistant) SummarizeText(ctx context.Context, oldText, newText, userPrompt string) (*Judgment, error) {
	var sb strings.Builder
	sb.WriteString("Two observations of the same region of a monitored web page.\n\n")
	fmt.Fprintf(&sb, "PREVIOUS:\n%s\n\nCURRENT:\n%s\n\n", truncate(oldText, 8000), truncate(newText, 8000))
	if userPrompt != "" {
		fmt.Fprintf(&sb, "The user only cares about: %s\n\n", userPrompt)
	}
	sb.WriteString(judgmentInstructions)

	response, err := a.callText(ctx, "summarize-text", a.summaryModel, sb.String(), 512)
	if err != nil {
		return nil, err
	}
	return parseJudgment(response), nil
}

// CompareScreenshots judges significance from two full-page screenshots
func (a *Assistant) CompareScreenshots(ctx context.Context, oldPNG, newPNG []byte, userPrompt string) (*Judgment, error) {
	var sb strings.Builder
	sb.WriteString("The first image is the previous screenshot of a monitored web page, the second is the current one.\n")
	sb.WriteString("Describe the visual difference between them.\n\n")
	if userPrompt != "" {
		fmt.Fprintf(&sb, "The user only cares about: %s\n\n", userPrompt)
	}
	sb.WriteString(judgmentInstructions)

	response, err := a.callVision(ctx, "compare-screenshots", sb.String(), [][]byte{oldPNG, newPNG}, 512)
	if err != nil {
		return nil, err
	}
	return parseJudgment(response), nil
}

// parseJudgment extracts the structured judgment from a model response.
// JSON is tried first; plain-text responses fall back to scanning for
// significance-negating phrases.
func parseJudgment(response string) *Judgment {
	s := strings.TrimSpace(response)
	if m := codeFenceRegex.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			var j Judgment
			if err := json.Unmarshal([]byte(s[start:end+1]), &j); err == nil && j.Summary != "" {
				return &j
			}
		}
	}

	// Fallback: the legacy heuristic over prose responses
	return &Judgment{
		Summary:     s,
		Significant: !containsNegatingPhrase(s),
	}
}

var negatingPhrases = []string{
	"no significant",
	"not significant",
	"no meaningful",
	"no notable",
	"no visible change",
	"unchanged",
	"identical",
}

func containsNegatingPhrase(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range negatingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
