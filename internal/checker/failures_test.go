package checker

import (
	"testing"
	"time"

	"github.com/pagewatch/pagewatch/internal/types"
)

// TestCooldownDoubling verifies the cooldown doubles per failure past the
// threshold and is capped at the ceiling
func TestCooldownDoubling(t *testing.T) {
	policy := DefaultFailurePolicy()

	tests := []struct {
		name     string
		failures int
		expected time.Duration
	}{
		{name: "below threshold", failures: 4, expected: 0},
		{name: "at threshold", failures: 5, expected: 60 * time.Minute},
		{name: "one past threshold", failures: 6, expected: 120 * time.Minute},
		{name: "two past threshold", failures: 7, expected: 240 * time.Minute},
		{name: "three past threshold", failures: 8, expected: 480 * time.Minute},
		{name: "capped at ceiling", failures: 20, expected: 480 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Cooldown(tt.failures)
			if got != tt.expected {
				t.Errorf("Cooldown(%d) = %v, want %v", tt.failures, got, tt.expected)
			}
		})
	}
}

// TestInCooldown verifies cooldown applies only at the failure threshold
func TestInCooldown(t *testing.T) {
	policy := DefaultFailurePolicy()

	m := &types.Monitor{ConsecutiveFailures: 4}
	if policy.InCooldown(m) {
		t.Error("monitor below threshold should not be in cooldown")
	}
	m.ConsecutiveFailures = 5
	if !policy.InCooldown(m) {
		t.Error("monitor at threshold should be in cooldown")
	}
}

// TestDue verifies the due decision across the never-checked, on-interval,
// and cooldown cases
func TestDue(t *testing.T) {
	policy := DefaultFailurePolicy()
	now := time.Now()
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name     string
		monitor  *types.Monitor
		expected bool
	}{
		{
			name:     "never checked is always due",
			monitor:  &types.Monitor{Interval: types.Interval1h},
			expected: true,
		},
		{
			name: "interval elapsed",
			monitor: &types.Monitor{
				Interval:  types.Interval1h,
				LastCheck: ago(61 * time.Minute),
			},
			expected: true,
		},
		{
			name: "interval not elapsed",
			monitor: &types.Monitor{
				Interval:  types.Interval1h,
				LastCheck: ago(30 * time.Minute),
			},
			expected: false,
		},
		{
			name: "cooldown overrides a shorter interval",
			monitor: &types.Monitor{
				Interval:            types.Interval5m,
				LastCheck:           ago(30 * time.Minute),
				ConsecutiveFailures: 5,
			},
			expected: false,
		},
		{
			name: "cooldown elapsed",
			monitor: &types.Monitor{
				Interval:            types.Interval5m,
				LastCheck:           ago(61 * time.Minute),
				ConsecutiveFailures: 5,
			},
			expected: true,
		},
		{
			name: "doubled cooldown not elapsed",
			monitor: &types.Monitor{
				Interval:            types.Interval5m,
				LastCheck:           ago(90 * time.Minute),
				ConsecutiveFailures: 6,
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Due(tt.monitor, now)
			if got != tt.expected {
				t.Errorf("Due() = %v, want %v", got, tt.expected)
			}
		})
	}
}
