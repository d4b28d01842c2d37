// Package directive implements detection and extraction of stop directives
// embedded in free-form reviewer model output.
//
// A stop directive is an in-band control instruction of the form:
//
//	*[STOP]* CONTEXT: "<reason>" <message...>
//
// The reviewer model is prompted to emit this grammar when the supervised
// agent should halt. Scan decides whether a block of text carries such a
// directive and, if so, extracts the quoted reason and the trailing message.
package directive

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker is the literal token that introduces a stop directive.
// Matching is exact and case-sensitive.
const Marker = "*[STOP]*"

// Directive is the result of scanning a block of text.
// Context and Message are populated only when Present is true.
type Directive struct {
	Present bool   `json:"present"`
	Context string `json:"context,omitempty"`
	Message string `json:"message,omitempty"`
}

// MalformedError reports that the stop marker was found but the
// CONTEXT: "..." structure expected after it could not be parsed.
// The caller must treat this as an intended-but-unusable directive,
// never as the absence of one.
type MalformedError struct {
	Tail string // text immediately following the marker, truncated
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("stop marker present but directive is malformed: %q", e.Tail)
}

// body anchors at the marker: optional whitespace, the CONTEXT: token,
// optional whitespace, a double-quoted span with no escape handling, then
// optional whitespace and everything remaining through end of input.
var body = regexp.MustCompile(`(?s)^\*\[STOP\]\*\s*CONTEXT:\s*"([^"]*)"\s*(.*)$`)

// Scan extracts a stop directive from text.
//
// When the marker is absent the zero Directive is returned with a nil error.
// When the marker is present, only the first occurrence is honored; any
// later markers are carried verbatim inside Message. Whitespace inside the
// quoted context span is preserved exactly, while whitespace around the
// quotes is skipped. Scan is a pure function of its input.
func Scan(text string) (Directive, error) {
	idx := strings.Index(text, Marker)
	if idx == -1 {
		return Directive{}, nil
	}

	m := body.FindStringSubmatch(text[idx:])
	if m == nil {
		return Directive{}, &MalformedError{Tail: snippet(text[idx+len(Marker):])}
	}

	return Directive{Present: true, Context: m[1], Message: m[2]}, nil
}

// snippet bounds the tail carried in a MalformedError so the error string
// stays printable for arbitrarily long model output.
func snippet(s string) string {
	const max = 80
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
