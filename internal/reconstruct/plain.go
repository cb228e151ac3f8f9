// Package reconstruct turns a flat trace log back into a readable call tree.
//
// Two renderings are provided. Plain indents every event by its nesting depth
// and brackets each top-level call in group markers. Markdown produces a
// document with nested bullet lists and a call frequency table.
//
// Depth is tracked with a single running counter: an Entering line increments
// it, an Exiting line decrements it. Nothing guarantees the log is balanced
// (functions that fall off their end emit no exit), so depth may grow without
// bound or turn negative. Indentation is clamped at zero; neither case is an
// error.
package reconstruct

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kolkov/calltrace/internal/tracelog"
)

// Indent is one nesting level.
const Indent = "    "

// Markers written around call groups in plain output.
const (
	StartGroupMarker = ">>> Starting group:"
	EndGroupMarker   = "<<< Ending group:"
	CompletedMarker  = ">>> Script execution completed <<<"
)

// Result is a rendered reconstruction.
type Result struct {
	// Lines is the rendered output without line terminators.
	Lines []string

	// Groups is the number of top-level call groups opened.
	Groups int

	// MaxDepth is the deepest nesting reached.
	MaxDepth int

	// FinalDepth is the depth after the last line. Zero for a balanced log,
	// positive when exits are missing, negative when exits outnumber entries.
	FinalDepth int
}

// String joins the rendered lines, terminating each with a newline.
func (r *Result) String() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return strings.Join(r.Lines, "\n") + "\n"
}

// WriteTo writes the rendered lines to w.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.String())
	return int64(n), err
}

// Append adds extra lines after the rendering, such as a call summary.
func (r *Result) Append(lines ...string) {
	r.Lines = append(r.Lines, lines...)
}

// WriteFile writes the rendering to path, replacing any existing content.
func (r *Result) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(r.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Plain renders log as an indented plain-text call tree.
//
// The header line is kept as the first line, indented like program output.
// An Entering line at depth zero opens a group. The depth is then updated
// and the event is indented by the new depth, so an entry appears one level
// deeper than its caller and the matching exit at the caller's level. An
// Exiting line that brings the depth back to zero closes the group. Other
// lines are indented one level regardless of depth.
func Plain(log *tracelog.Log) *Result {
	r := &Result{Lines: make([]string, 0, len(log.Lines)+4)}
	r.Lines = append(r.Lines, Indent+log.HeaderLine)

	depth := 0
	for _, line := range log.Lines {
		switch line.Kind {
		case tracelog.Entering:
			if depth == 0 {
				r.Lines = append(r.Lines, "", StartGroupMarker)
				r.Groups++
			}
			depth++
			r.Lines = append(r.Lines, indent(depth)+line.Text)
		case tracelog.Exiting:
			depth--
			r.Lines = append(r.Lines, indent(depth)+line.Text)
			if depth == 0 {
				r.Lines = append(r.Lines, EndGroupMarker)
			}
		default:
			r.Lines = append(r.Lines, Indent+line.Text)
		}
		if depth > r.MaxDepth {
			r.MaxDepth = depth
		}
	}

	r.Lines = append(r.Lines, "", CompletedMarker)
	r.FinalDepth = depth
	return r
}

// indent returns the indentation for depth, clamped at zero.
func indent(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat(Indent, depth)
}
