// Package notify evaluates notification rules and produces
// channel-agnostic payloads. Delivery itself (email, push, webhooks) is
// owned by an external collaborator behind the Dispatcher interface and
// is fire-and-forget from the core's perspective.
package notify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pagewatch/pagewatch/internal/types"
)

// Notification is the channel-agnostic output tuple handed to the
// delivery collaborator.
type Notification struct {
	MonitorID     string
	Subject       string
	Message       string // plain text body
	RichMessage   string // HTML body
	DiffText      string // optional inline diff
	DiffImagePath string // optional path to the highlighted diff artifact
}

// ChangeContext carries everything the router needs to evaluate one
// completed, non-error check.
type ChangeContext struct {
	Monitor       *types.Monitor
	PreviousValue string
	CurrentValue  string
	Changed       bool // final change decision from the detector
	Baseline      bool // first-ever observation, never notifies on content
	Summary       string
	Significant   bool // AI significance judgment, when a summary was produced
	HTTPStatus    int  // 0 when the response was not observed
	DiffText      string
	DiffImagePath string
}

// Router evaluates the configured rule, the keyword watch list, and the
// downtime condition. The three are independent: a suppressed main rule
// does not suppress keyword or downtime alerts.
type Router struct{}

// NewRouter creates a notification router
func NewRouter() *Router {
	return &Router{}
}

// Evaluate returns the notifications this check raises, in a stable
// order: main change alert, keyword alerts, downtime alert.
func (r *Router) Evaluate(cc *ChangeContext) []Notification {
	var out []Notification

	if cc.Changed && !cc.Baseline && r.ruleFires(cc) {
		out = append(out, r.changeNotification(cc))
	}

	if !cc.Baseline {
		out = append(out, r.keywordNotifications(cc)...)
	}

	if cc.HTTPStatus >= 400 {
		out = append(out, r.downtimeNotification(cc))
	}

	return out
}

// ruleFires applies the monitor's single configured rule mode to the new value
func (r *Router) ruleFires(cc *ChangeContext) bool {
	rule := cc.Monitor.Notify
	switch rule.Mode {
	case types.NotifyAlways:
		return true
	case types.NotifyContains:
		return containsFold(cc.CurrentValue, rule.Threshold)
	case types.NotifyNotContains:
		return !containsFold(cc.CurrentValue, rule.Threshold)
	case types.NotifyValueLT:
		v, t, ok := numericPair(cc.CurrentValue, rule.Threshold)
		return ok && v < t
	case types.NotifyValueGT:
		v, t, ok := numericPair(cc.CurrentValue, rule.Threshold)
		return ok && v > t
	case types.NotifyAIFocus:
		return cc.Significant && strings.TrimSpace(cc.Summary) != ""
	default:
		return false
	}
}

func (r *Router) changeNotification(cc *ChangeContext) Notification {
	m := cc.Monitor
	subject := fmt.Sprintf("Change detected: %s", monitorLabel(m))

	var body strings.Builder
	fmt.Fprintf(&body, "A change was detected on %s\n", m.URL)
	if cc.Summary != "" {
		fmt.Fprintf(&body, "\nSummary: %s\n", cc.Summary)
	}
	if cc.DiffText != "" {
		fmt.Fprintf(&body, "\nDiff:\n%s\n", cc.DiffText)
	}

	var rich strings.Builder
	fmt.Fprintf(&rich, "<p>A change was detected on <a href=%q>%s</a></p>", m.URL, htmlEscape(monitorLabel(m)))
	if cc.Summary != "" {
		fmt.Fprintf(&rich, "<p><b>Summary:</b> %s</p>", htmlEscape(cc.Summary))
	}
	if cc.DiffText != "" {
		fmt.Fprintf(&rich, "<pre>%s</pre>", htmlEscape(cc.DiffText))
	}

	return Notification{
		MonitorID:     m.ID,
		Subject:       subject,
		Message:       body.String(),
		RichMessage:   rich.String(),
		DiffText:      cc.DiffText,
		DiffImagePath: cc.DiffImagePath,
	}
}

// keywordNotifications raises one alert per keyword exactly on a
// qualifying presence transition between the previous and current
// content. Steady state in either direction never fires.
func (r *Router) keywordNotifications(cc *ChangeContext) []Notification {
	m := cc.Monitor
	var out []Notification
	for _, kw := range m.Keywords {
		was := containsFold(cc.PreviousValue, kw.Text)
		is := containsFold(cc.CurrentValue, kw.Text)
		if was == is {
			continue
		}

		appeared := !was && is
		fires := false
		switch kw.Mode {
		case types.KeywordAppears:
			fires = appeared
		case types.KeywordDisappears:
			fires = !appeared
		case types.KeywordAny:
			fires = true
		}
		if !fires {
			continue
		}

		verb := "appeared on"
		if !appeared {
			verb = "disappeared from"
		}
		out = append(out, Notification{
			MonitorID: m.ID,
			Subject:   fmt.Sprintf("Keyword %q %s %s", kw.Text, verb, monitorLabel(m)),
			Message:   fmt.Sprintf("The keyword %q has %s %s", kw.Text, verb, m.URL),
			RichMessage: fmt.Sprintf("<p>The keyword <b>%s</b> has %s <a href=%q>%s</a></p>",
				htmlEscape(kw.Text), verb, m.URL, htmlEscape(monitorLabel(m))),
		})
	}
	return out
}

func (r *Router) downtimeNotification(cc *ChangeContext) Notification {
	m := cc.Monitor
	return Notification{
		MonitorID: m.ID,
		Subject:   fmt.Sprintf("Site down: %s (HTTP %d)", monitorLabel(m), cc.HTTPStatus),
		Message:   fmt.Sprintf("%s responded with HTTP %d", m.URL, cc.HTTPStatus),
		RichMessage: fmt.Sprintf("<p><a href=%q>%s</a> responded with <b>HTTP %d</b></p>",
			m.URL, htmlEscape(monitorLabel(m)), cc.HTTPStatus),
	}
}

func monitorLabel(m *types.Monitor) string {
	if m.Name != "" {
		return m.Name
	}
	return m.URL
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

var numberRegex = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// numericPair extracts the first number from the extracted value and
// parses the rule threshold. Comma decimal separators are accepted.
func numericPair(value, threshold string) (float64, float64, bool) {
	raw := numberRegex.FindString(value)
	if raw == "" {
		return 0, 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, 0, false
	}
	t, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(threshold), ",", "."), 64)
	if err != nil {
		return 0, 0, false
	}
	return v, t, true
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
