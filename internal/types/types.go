package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Monitor represents a configured watch target: a URL, an extraction rule,
// a schedule, and a notification rule. Monitors are created and edited by
// the external CRUD layer; the check pipeline only mutates the result
// fields (LastCheck, LastValue, LastScreenshot, ConsecutiveFailures) and,
// after a validated self-heal, Selector.
type Monitor struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	URL                 string         `json:"url"`
	Selector            string         `json:"selector"`
	Kind                MonitorKind    `json:"kind"`
	Interval            Interval       `json:"interval"`
	LastCheck           *time.Time     `json:"last_check,omitempty"`
	LastValue           string         `json:"last_value,omitempty"`
	LastScreenshot      string         `json:"last_screenshot,omitempty"` // artifact path
	ConsecutiveFailures int            `json:"consecutive_failures"`
	Notify              NotifyRule     `json:"notify"`
	Keywords            []Keyword      `json:"keywords,omitempty"`
	Scenario            []ScenarioStep `json:"scenario,omitempty"`
	AIPrompt            string         `json:"ai_prompt,omitempty"`
	AIOnly              bool           `json:"ai_only"` // route change candidates through the AI summarizer
	SelectorHint        string         `json:"selector_hint,omitempty"`
	Active              bool           `json:"active"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// Validate checks if the monitor has valid field values
func (m *Monitor) Validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(m.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https (got %q)", u.Scheme)
	}
	if strings.TrimSpace(m.Selector) == "" {
		return fmt.Errorf("selector is required")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid monitor kind: %s", m.Kind)
	}
	if !m.Interval.IsValid() {
		return fmt.Errorf("invalid interval: %s", m.Interval)
	}
	if !m.Notify.Mode.IsValid() {
		return fmt.Errorf("invalid notify mode: %s", m.Notify.Mode)
	}
	for i, kw := range m.Keywords {
		if strings.TrimSpace(kw.Text) == "" {
			return fmt.Errorf("keyword %d: text is required", i)
		}
		if !kw.Mode.IsValid() {
			return fmt.Errorf("keyword %d: invalid mode %s", i, kw.Mode)
		}
	}
	for i, step := range m.Scenario {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("scenario step %d: %w", i, err)
		}
	}
	if m.ConsecutiveFailures < 0 {
		return fmt.Errorf("consecutive_failures cannot be negative")
	}
	return nil
}

// Host returns the hostname portion of the monitor URL, used for
// per-host politeness limiting. Returns "" for unparseable URLs.
func (m *Monitor) Host() string {
	u, err := url.Parse(m.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// MonitorKind selects the change-detection strategy for a monitor
type MonitorKind string

const (
	// KindText compares normalized extracted text between checks
	KindText MonitorKind = "text"
	// KindVisual compares full-page screenshots pixel by pixel
	KindVisual MonitorKind = "visual"
)

// IsValid checks if the kind value is valid
func (k MonitorKind) IsValid() bool {
	return k == KindText || k == KindVisual
}

// Interval is an enumerated check frequency bucket
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval3h  Interval = "3h"
	Interval6h  Interval = "6h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval3h:  3 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval12h: 12 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
}

// IsValid checks if the interval is one of the enumerated buckets
func (i Interval) IsValid() bool {
	_, ok := intervalDurations[i]
	return ok
}

// Duration returns the wall-clock length of the interval bucket.
// Unknown intervals fall back to one hour rather than zero so a
// corrupted row can never produce a hot scheduling loop.
func (i Interval) Duration() time.Duration {
	if d, ok := intervalDurations[i]; ok {
		return d
	}
	return time.Hour
}

// NotifyMode selects how the notification rule evaluates a detected change
type NotifyMode string

const (
	// NotifyAlways fires on every detected change
	NotifyAlways NotifyMode = "always"
	// NotifyContains fires only when the new value contains the threshold text
	NotifyContains NotifyMode = "contains"
	// NotifyNotContains fires only when the new value does not contain the threshold text
	NotifyNotContains NotifyMode = "not_contains"
	// NotifyValueLT fires when the first number in the new value is below the threshold
	NotifyValueLT NotifyMode = "value_lt"
	// NotifyValueGT fires when the first number in the new value is above the threshold
	NotifyValueGT NotifyMode = "value_gt"
	// NotifyAIFocus fires only when the AI summary judged the change significant
	NotifyAIFocus NotifyMode = "ai_focus"
)

// IsValid checks if the notify mode value is valid
func (m NotifyMode) IsValid() bool {
	switch m {
	case NotifyAlways, NotifyContains, NotifyNotContains, NotifyValueLT, NotifyValueGT, NotifyAIFocus:
		return true
	}
	return false
}

// NotifyRule pairs a mode with its threshold argument. Threshold is the
// substring for contains/not_contains and the numeric bound (as text)
// for value_lt/value_gt; it is ignored for always and ai_focus.
type NotifyRule struct {
	Mode      NotifyMode `json:"mode"`
	Threshold string     `json:"threshold,omitempty"`
}

// KeywordMode selects which presence transition fires a keyword alert
type KeywordMode string

const (
	// KeywordAppears fires only on the absent -> present transition
	KeywordAppears KeywordMode = "appears"
	// KeywordDisappears fires only on the present -> absent transition
	KeywordDisappears KeywordMode = "disappears"
	// KeywordAny fires on either transition
	KeywordAny KeywordMode = "any"
)

// IsValid checks if the keyword mode value is valid
func (m KeywordMode) IsValid() bool {
	return m == KeywordAppears || m == KeywordDisappears || m == KeywordAny
}

// Keyword is a watched phrase with a transition mode. Keyword alerts are
// evaluated independently of the monitor's main notification rule.
type Keyword struct {
	Text string      `json:"text"`
	Mode KeywordMode `json:"mode"`
}

// ScenarioStep is one pre-extraction interaction executed against the
// live page (cookie banners, tab switches, lazy-load scrolls). A failing
// step is logged and skipped; it never aborts the remaining steps.
type ScenarioStep struct {
	Action   ScenarioAction `json:"action"`
	Selector string         `json:"selector,omitempty"`
	Value    string         `json:"value,omitempty"`
}

// ScenarioAction enumerates the supported interaction step kinds
type ScenarioAction string

const (
	ActionWait         ScenarioAction = "wait"          // sleep Value milliseconds
	ActionClick        ScenarioAction = "click"         // click Selector
	ActionType         ScenarioAction = "type"          // type Value into Selector
	ActionWaitSelector ScenarioAction = "wait_selector" // wait for Selector to appear
	ActionScroll       ScenarioAction = "scroll"        // scroll to page bottom
	ActionKey          ScenarioAction = "key"           // press key named by Value
)

// IsValid checks if the action value is valid
func (a ScenarioAction) IsValid() bool {
	switch a {
	case ActionWait, ActionClick, ActionType, ActionWaitSelector, ActionScroll, ActionKey:
		return true
	}
	return false
}

// Validate checks the step's action and required arguments
func (s *ScenarioStep) Validate() error {
	if !s.Action.IsValid() {
		return fmt.Errorf("invalid action: %s", s.Action)
	}
	switch s.Action {
	case ActionClick, ActionWaitSelector:
		if s.Selector == "" {
			return fmt.Errorf("%s requires a selector", s.Action)
		}
	case ActionType:
		if s.Selector == "" {
			return fmt.Errorf("type requires a selector")
		}
	case ActionKey:
		if s.Value == "" {
			return fmt.Errorf("key requires a value")
		}
	}
	return nil
}
