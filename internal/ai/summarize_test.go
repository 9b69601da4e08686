package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseJudgmentJSON verifies the structured contract is preferred
func TestParseJudgmentJSON(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		summary     string
		significant bool
	}{
		{
			name:        "bare JSON",
			response:    `{"summary": "Price dropped from $49 to $39", "significant": true}`,
			summary:     "Price dropped from $49 to $39",
			significant: true,
		},
		{
			name:        "JSON declaring insignificance",
			response:    `{"summary": "Only the session token changed", "significant": false}`,
			summary:     "Only the session token changed",
			significant: false,
		},
		{
			name:        "fenced JSON",
			response:    "```json\n{\"summary\": \"New article published\", \"significant\": true}\n```",
			summary:     "New article published",
			significant: true,
		},
		{
			name:        "JSON wrapped in prose",
			response:    "Here is my judgment: {\"summary\": \"Stock status flipped\", \"significant\": true} Hope that helps!",
			summary:     "Stock status flipped",
			significant: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := parseJudgment(tt.response)
			require.NotNil(t, j)
			assert.Equal(t, tt.summary, j.Summary)
			assert.Equal(t, tt.significant, j.Significant)
		})
	}
}

// TestParseJudgmentProseFallback verifies plain-text responses fall back
// to phrase scanning
func TestParseJudgmentProseFallback(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		significant bool
	}{
		{name: "plain prose change", response: "The headline was rewritten and a new section was added.", significant: true},
		{name: "no significant changes", response: "There are no significant changes between the two versions.", significant: false},
		{name: "not significant", response: "The difference is not significant.", significant: false},
		{name: "identical", response: "The two screenshots are identical.", significant: false},
		{name: "unchanged", response: "The monitored region is unchanged.", significant: false},
		{name: "no visible change", response: "No visible change between the captures.", significant: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := parseJudgment(tt.response)
			require.NotNil(t, j)
			assert.Equal(t, tt.significant, j.Significant)
			assert.NotEmpty(t, j.Summary)
		})
	}
}

// TestParseJudgmentMalformedJSON verifies bad JSON degrades to the prose path
func TestParseJudgmentMalformedJSON(t *testing.T) {
	j := parseJudgment(`{"summary": "truncated`)
	require.NotNil(t, j)
	assert.True(t, j.Significant, "malformed response without negating phrases defaults to significant")
}
