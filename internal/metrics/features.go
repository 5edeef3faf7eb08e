// Package metrics derives cheap size features from tool output for telemetry.
package metrics

import (
	"strings"
	"unicode/utf8"
)

// Text summarises a rendered tool result.
type Text struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// Measure counts bytes, runes, whitespace-separated words and lines in s.
// The empty string has zero lines; a trailing newline does not start a new one.
func Measure(s string) Text {
	return Text{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
		Lines: countLines(s),
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// AddTo writes the features into fields as <prefix>_bytes, <prefix>_runes
// and so on.
func (t Text) AddTo(fields map[string]any, prefix string) {
	fields[prefix+"_bytes"] = t.Bytes
	fields[prefix+"_runes"] = t.Runes
	fields[prefix+"_words"] = t.Words
	fields[prefix+"_lines"] = t.Lines
}
