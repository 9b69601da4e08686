package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCleanSelectorResponse verifies fence, quote, and prose stripping
func TestCleanSelectorResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected string
	}{
		{name: "bare selector", response: ".price-tag", expected: ".price-tag"},
		{name: "surrounding whitespace", response: "  div.price > span  \n", expected: "div.price > span"},
		{name: "code fence", response: "```css\n#main .price\n```", expected: "#main .price"},
		{name: "backtick quoted", response: "`.price`", expected: ".price"},
		{name: "double quoted", response: `".price"`, expected: ".price"},
		{name: "multi-line takes first", response: "\n.price\n(the old one moved)", expected: ".price"},
		{name: "empty", response: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanSelectorResponse(tt.response)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestSanitizeDOM verifies script/style stripping and truncation
func TestSanitizeDOM(t *testing.T) {
	html := `<html><head><meta charset="utf-8"><style>body{color:red}</style></head>
<body>
<script>trackEverything();</script>
<div class="price">$49.99</div>
<noscript>enable js</noscript>
<svg><circle r="5"/></svg>
</body></html>`

	out, err := SanitizeDOM(html, 60000)
	require.NoError(t, err)

	assert.Contains(t, out, `<div class="price">$49.99</div>`)
	assert.NotContains(t, out, "trackEverything")
	assert.NotContains(t, out, "color:red")
	assert.NotContains(t, out, "enable js")
	assert.NotContains(t, out, "circle")
}

func TestSanitizeDOMTruncates(t *testing.T) {
	html := "<body><p>" + strings.Repeat("x", 500) + "</p></body>"
	out, err := SanitizeDOM(html, 100)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 103, "truncated output plus ellipsis")
	assert.True(t, strings.HasSuffix(out, "..."))
}
