package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxDOMSnapshot caps the sanitized DOM text sent with a repair request.
// Pages routinely exceed the model's useful context; the interesting
// structure is almost always near the old selector's neighborhood anyway.
const maxDOMSnapshot = 60000

// RepairRequest carries everything the repair collaborator needs to
// propose a replacement for a selector that stopped matching.
type RepairRequest struct {
	DOM         string // raw document HTML, sanitized before sending
	OldSelector string
	LastValue   string // last successfully extracted content
	Hint        string // optional user-supplied hint about the target element
}

var (
	codeFenceRegex   = regexp.MustCompile("(?s)```[a-z]*\\n?(.*?)```")
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// RepairSelector asks the model for a replacement CSS selector. It
// returns "" when the model declines; the caller must validate any
// non-empty suggestion against the live page before committing it.
func (a *Assistant) RepairSelector(ctx context.Context, req *RepairRequest) (string, error) {
	dom, err := SanitizeDOM(req.DOM, maxDOMSnapshot)
	if err != nil {
		return "", fmt.Errorf("failed to sanitize DOM snapshot: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("A CSS selector on a monitored web page no longer matches any element.\n")
	sb.WriteString("Propose a replacement selector for the same content, or reply NONE if no good candidate exists.\n\n")
	fmt.Fprintf(&sb, "Old selector: %s\n", req.OldSelector)
	if req.LastValue != "" {
		fmt.Fprintf(&sb, "Content the old selector used to extract: %q\n", truncate(req.LastValue, 500))
	}
	if req.Hint != "" {
		fmt.Fprintf(&sb, "User hint about the target element: %s\n", req.Hint)
	}
	sb.WriteString("\nCurrent page DOM (scripts and styles stripped):\n")
	sb.WriteString(dom)
	sb.WriteString("\n\nReply with exactly one CSS selector on a single line, nothing else. Reply NONE if no candidate exists.")

	response, err := a.callText(ctx, "selector-repair", a.model, sb.String(), 256)
	if err != nil {
		return "", err
	}

	selector := cleanSelectorResponse(response)
	if selector == "" || strings.EqualFold(selector, "none") {
		return "", nil
	}
	return selector, nil
}

// cleanSelectorResponse strips fences, quotes, and prose the model may
// wrap around the selector
func cleanSelectorResponse(response string) string {
	s := strings.TrimSpace(response)
	if m := codeFenceRegex.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	// Take the first non-empty line
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "`\"'")
		if line != "" {
			return line
		}
	}
	return ""
}

// SanitizeDOM strips scripts, styles, and other non-structural noise
// from a document and returns the body HTML truncated to maxLen.
func SanitizeDOM(html string, maxLen int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	doc.Find("script, style, noscript, svg, iframe, link, meta, template").Remove()

	body := doc.Find("body")
	var out string
	if body.Length() > 0 {
		out, err = body.Html()
	} else {
		out, err = doc.Html()
	}
	if err != nil {
		return "", fmt.Errorf("failed to serialize document: %w", err)
	}

	// Collapse runs of whitespace left behind by removed nodes
	out = whitespaceRegex.ReplaceAllString(out, " ")
	return truncate(strings.TrimSpace(out), maxLen), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
