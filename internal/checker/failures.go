package checker

import (
	"time"

	"github.com/pagewatch/pagewatch/internal/types"
)

// FailurePolicy governs when repeatedly failing monitors are re-tried.
// Once a monitor reaches Threshold consecutive failures its schedule
// switches from the configured interval to an exponential cooldown that
// doubles per additional failure, capped at MaxCooldown so a flaky site
// is never suspended indefinitely.
type FailurePolicy struct {
	Threshold    int           // consecutive failures before cooldown applies (default: 5)
	BaseCooldown time.Duration // cooldown at exactly Threshold failures (default: 60m)
	MaxCooldown  time.Duration // cooldown ceiling (default: 480m)
}

// DefaultFailurePolicy returns the default failure policy
func DefaultFailurePolicy() *FailurePolicy {
	return &FailurePolicy{
		Threshold:    5,
		BaseCooldown: 60 * time.Minute,
		MaxCooldown:  480 * time.Minute,
	}
}

// InCooldown reports whether the monitor's failure count has reached the
// cooldown threshold
func (p *FailurePolicy) InCooldown(m *types.Monitor) bool {
	return m.ConsecutiveFailures >= p.Threshold
}

// Cooldown returns the wait imposed at the given consecutive-failure
// count: base * 2^(failures-threshold), capped at the ceiling. Zero
// below the threshold.
func (p *FailurePolicy) Cooldown(failures int) time.Duration {
	if failures < p.Threshold {
		return 0
	}
	cooldown := p.BaseCooldown
	for i := p.Threshold; i < failures; i++ {
		cooldown *= 2
		if cooldown >= p.MaxCooldown {
			return p.MaxCooldown
		}
	}
	if cooldown > p.MaxCooldown {
		return p.MaxCooldown
	}
	return cooldown
}

// Due decides whether a monitor belongs in the scheduler's due set at
// now. A monitor with no prior check is always due; a monitor in
// cooldown is due once its cooldown elapsed; otherwise the configured
// interval applies.
func (p *FailurePolicy) Due(m *types.Monitor, now time.Time) bool {
	if m.LastCheck == nil {
		return true
	}
	if p.InCooldown(m) {
		return !now.Before(m.LastCheck.Add(p.Cooldown(m.ConsecutiveFailures)))
	}
	return !now.Before(m.LastCheck.Add(m.Interval.Duration()))
}
