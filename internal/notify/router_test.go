package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewatch/pagewatch/internal/types"
)

func textMonitor(mode types.NotifyMode, threshold string) *types.Monitor {
	return &types.Monitor{
		ID:   "mon-1",
		Name: "Pricing",
		URL:  "https://example.com/pricing",
		Kind: types.KindText,
		Notify: types.NotifyRule{
			Mode:      mode,
			Threshold: threshold,
		},
	}
}

// TestRuleModes verifies each notify mode against a changed check
func TestRuleModes(t *testing.T) {
	tests := []struct {
		name    string
		mode    types.NotifyMode
		thresh  string
		cc      ChangeContext
		expects bool
	}{
		{
			name:    "always fires on any change",
			mode:    types.NotifyAlways,
			cc:      ChangeContext{CurrentValue: "anything"},
			expects: true,
		},
		{
			name:    "contains matches case-insensitively",
			mode:    types.NotifyContains,
			thresh:  "in stock",
			cc:      ChangeContext{CurrentValue: "Now IN STOCK again"},
			expects: true,
		},
		{
			name:    "contains misses",
			mode:    types.NotifyContains,
			thresh:  "in stock",
			cc:      ChangeContext{CurrentValue: "sold out"},
			expects: false,
		},
		{
			name:    "not_contains fires when phrase absent",
			mode:    types.NotifyNotContains,
			thresh:  "sold out",
			cc:      ChangeContext{CurrentValue: "available now"},
			expects: true,
		},
		{
			name:    "value_lt compares first extracted number",
			mode:    types.NotifyValueLT,
			thresh:  "50",
			cc:      ChangeContext{CurrentValue: "Price: $49.99"},
			expects: true,
		},
		{
			name:    "value_lt not below threshold",
			mode:    types.NotifyValueLT,
			thresh:  "40",
			cc:      ChangeContext{CurrentValue: "Price: $49.99"},
			expects: false,
		},
		{
			name:    "value_lt with no number is suppressed",
			mode:    types.NotifyValueLT,
			thresh:  "50",
			cc:      ChangeContext{CurrentValue: "price unavailable"},
			expects: false,
		},
		{
			name:    "value_gt with comma decimal",
			mode:    types.NotifyValueGT,
			thresh:  "40",
			cc:      ChangeContext{CurrentValue: "49,99 EUR"},
			expects: true,
		},
		{
			name:    "ai_focus requires significance",
			mode:    types.NotifyAIFocus,
			cc:      ChangeContext{CurrentValue: "x", Summary: "Price dropped", Significant: true},
			expects: true,
		},
		{
			name:    "ai_focus suppressed when not significant",
			mode:    types.NotifyAIFocus,
			cc:      ChangeContext{CurrentValue: "x", Summary: "Rotating banner changed", Significant: false},
			expects: false,
		},
		{
			name:    "ai_focus suppressed without a summary",
			mode:    types.NotifyAIFocus,
			cc:      ChangeContext{CurrentValue: "x", Significant: true},
			expects: false,
		},
	}

	router := NewRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := tt.cc
			cc.Monitor = textMonitor(tt.mode, tt.thresh)
			cc.Changed = true
			got := router.Evaluate(&cc)
			if tt.expects {
				require.Len(t, got, 1)
				assert.Equal(t, "mon-1", got[0].MonitorID)
				assert.Contains(t, got[0].Subject, "Change detected")
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

// TestBaselineNeverNotifies verifies the first observation is silent even
// under an always rule
func TestBaselineNeverNotifies(t *testing.T) {
	router := NewRouter()
	m := textMonitor(types.NotifyAlways, "")
	m.Keywords = []types.Keyword{{Text: "sale", Mode: types.KeywordAny}}

	got := router.Evaluate(&ChangeContext{
		Monitor:      m,
		CurrentValue: "Big sale today",
		Changed:      true,
		Baseline:     true,
	})
	assert.Empty(t, got)
}

// TestKeywordTransitions verifies keyword alerts fire exactly on
// presence transitions
func TestKeywordTransitions(t *testing.T) {
	tests := []struct {
		name     string
		mode     types.KeywordMode
		previous string
		current  string
		expects  bool
	}{
		{name: "appears fires on absent to present", mode: types.KeywordAppears, previous: "in stock", current: "SOLD OUT", expects: true},
		{name: "appears silent while present", mode: types.KeywordAppears, previous: "sold out", current: "still sold out", expects: false},
		{name: "appears silent on disappearance", mode: types.KeywordAppears, previous: "sold out", current: "in stock", expects: false},
		{name: "disappears fires on present to absent", mode: types.KeywordDisappears, previous: "sold out", current: "in stock", expects: true},
		{name: "disappears silent while absent", mode: types.KeywordDisappears, previous: "in stock", current: "in stock now", expects: false},
		{name: "any fires both directions", mode: types.KeywordAny, previous: "ok", current: "sold out", expects: true},
	}

	router := NewRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := textMonitor(types.NotifyAlways, "")
			m.Keywords = []types.Keyword{{Text: "sold out", Mode: tt.mode}}

			// Changed=false so only keyword alerts can fire
			got := router.Evaluate(&ChangeContext{
				Monitor:       m,
				PreviousValue: tt.previous,
				CurrentValue:  tt.current,
			})
			if tt.expects {
				require.Len(t, got, 1)
				assert.Contains(t, got[0].Subject, "sold out")
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

// TestKeywordIndependentOfMainRule verifies a suppressed main rule does
// not swallow a keyword alert
func TestKeywordIndependentOfMainRule(t *testing.T) {
	router := NewRouter()
	m := textMonitor(types.NotifyContains, "never-present")
	m.Keywords = []types.Keyword{{Text: "error", Mode: types.KeywordAppears}}

	got := router.Evaluate(&ChangeContext{
		Monitor:       m,
		PreviousValue: "all good",
		CurrentValue:  "internal error",
		Changed:       true,
	})
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0].Subject, "Keyword"))
}

// TestDowntimeNotification verifies error statuses raise a downtime alert
func TestDowntimeNotification(t *testing.T) {
	router := NewRouter()

	got := router.Evaluate(&ChangeContext{
		Monitor:    textMonitor(types.NotifyAlways, ""),
		HTTPStatus: 503,
	})
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Subject, "503")

	got = router.Evaluate(&ChangeContext{
		Monitor:    textMonitor(types.NotifyAlways, ""),
		HTTPStatus: 200,
	})
	assert.Empty(t, got)
}

// TestStableOrdering verifies change, keyword, and downtime alerts come
// back in that order when all fire at once
func TestStableOrdering(t *testing.T) {
	router := NewRouter()
	m := textMonitor(types.NotifyAlways, "")
	m.Keywords = []types.Keyword{{Text: "maintenance", Mode: types.KeywordAppears}}

	got := router.Evaluate(&ChangeContext{
		Monitor:       m,
		PreviousValue: "welcome",
		CurrentValue:  "down for maintenance",
		Changed:       true,
		HTTPStatus:    500,
	})
	require.Len(t, got, 3)
	assert.Contains(t, got[0].Subject, "Change detected")
	assert.Contains(t, got[1].Subject, "Keyword")
	assert.Contains(t, got[2].Subject, "Site down")
}
