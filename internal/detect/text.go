// Package detect implements the change-detection algorithms: text
// comparison with a readable diff rendering, and pixel-level visual
// comparison with a highlighted diff image. Everything here is a pure
// function over two snapshots.
package detect

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// TextChanged reports whether two extracted values differ after
// whitespace normalization. Any inequality is a candidate change; the
// pipeline may still suppress it through the AI summarizer.
func TextChanged(previous, current string) bool {
	return normalize(previous) != normalize(current)
}

// DiffText renders a compact inline diff between two extracted values,
// suitable for the plain-text body of a notification. Deletions are
// wrapped in [-...-], insertions in {+...+}.
func DiffText(previous, current string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(normalize(previous), normalize(current), false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-")
			sb.WriteString(d.Text)
			sb.WriteString("-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+")
			sb.WriteString(d.Text)
			sb.WriteString("+}")
		case diffmatchpatch.DiffEqual:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
