package types

import (
	"testing"
	"time"
)

func validMonitor() *Monitor {
	return &Monitor{
		URL:      "https://example.com",
		Selector: "body",
		Kind:     KindText,
		Interval: Interval1h,
		Notify:   NotifyRule{Mode: NotifyAlways},
	}
}

// TestMonitorValidate verifies each required field is enforced
func TestMonitorValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Monitor)
		wantErr bool
	}{
		{name: "valid", mutate: func(m *Monitor) {}, wantErr: false},
		{name: "missing url", mutate: func(m *Monitor) { m.URL = "" }, wantErr: true},
		{name: "non-http scheme", mutate: func(m *Monitor) { m.URL = "ftp://example.com" }, wantErr: true},
		{name: "missing selector", mutate: func(m *Monitor) { m.Selector = "  " }, wantErr: true},
		{name: "bad kind", mutate: func(m *Monitor) { m.Kind = "audio" }, wantErr: true},
		{name: "bad interval", mutate: func(m *Monitor) { m.Interval = "2h" }, wantErr: true},
		{name: "bad notify mode", mutate: func(m *Monitor) { m.Notify.Mode = "sometimes" }, wantErr: true},
		{name: "empty keyword", mutate: func(m *Monitor) { m.Keywords = []Keyword{{Text: "", Mode: KeywordAny}} }, wantErr: true},
		{name: "bad keyword mode", mutate: func(m *Monitor) { m.Keywords = []Keyword{{Text: "x", Mode: "flips"}} }, wantErr: true},
		{name: "negative failures", mutate: func(m *Monitor) { m.ConsecutiveFailures = -1 }, wantErr: true},
		{name: "valid scenario", mutate: func(m *Monitor) {
			m.Scenario = []ScenarioStep{{Action: ActionClick, Selector: "#ok"}}
		}, wantErr: false},
		{name: "click without selector", mutate: func(m *Monitor) {
			m.Scenario = []ScenarioStep{{Action: ActionClick}}
		}, wantErr: true},
		{name: "key without value", mutate: func(m *Monitor) {
			m.Scenario = []ScenarioStep{{Action: ActionKey}}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMonitor()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

// TestIntervalDuration verifies bucket durations and the corrupted-row fallback
func TestIntervalDuration(t *testing.T) {
	if got := Interval5m.Duration(); got != 5*time.Minute {
		t.Errorf("Interval5m.Duration() = %v, want 5m", got)
	}
	if got := Interval1w.Duration(); got != 7*24*time.Hour {
		t.Errorf("Interval1w.Duration() = %v, want 168h", got)
	}
	if got := Interval("garbage").Duration(); got != time.Hour {
		t.Errorf("unknown interval should fall back to 1h, got %v", got)
	}
}

// TestMonitorHost verifies hostname extraction for politeness limiting
func TestMonitorHost(t *testing.T) {
	m := &Monitor{URL: "https://shop.example.com:8443/items?id=1"}
	if got := m.Host(); got != "shop.example.com" {
		t.Errorf("Host() = %q, want shop.example.com", got)
	}
}
