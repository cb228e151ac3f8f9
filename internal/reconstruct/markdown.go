package reconstruct

import (
	"fmt"

	"github.com/kolkov/calltrace/internal/callsummary"
	"github.com/kolkov/calltrace/internal/tracelog"
)

const markdownTitle = "# Debug Log <small>-> generated using calltrace</small>"

// Markdown renders log as a Markdown document.
//
// The document opens with a collapsible brief summary, followed by the
// execution flow as nested bullets. A bullet is indented by the depth before
// its own event is applied, so a callee's entry sits one level under its
// caller's entry and an exit sits level with its entry. Two horizontal rules
// separate top-level calls. Program output is copied verbatim. The document
// ends with a call frequency table built from summary, in first-call order.
func Markdown(log *tracelog.Log, summary *callsummary.Summary) *Result {
	r := &Result{}
	r.Lines = append(r.Lines,
		markdownTitle,
		"",
		"<details><summary>Click to expand the brief summary</summary>",
		"",
		fmt.Sprintf("- Total function calls: %d", summary.Total()),
		fmt.Sprintf("- Unique functions entered: %d", summary.Len()),
		"</details>",
		"",
		"## Execution Flow",
		"",
		"<details>",
		"<summary>Click to expand the execution flow details</summary>",
		"",
	)

	depth := 0
	for _, line := range log.Lines {
		if line.Kind == tracelog.Other {
			r.Lines = append(r.Lines, line.Text)
			continue
		}

		r.Lines = append(r.Lines, bullet(depth, line))
		if line.Kind == tracelog.Entering {
			if depth == 0 {
				r.Groups++
			}
			depth++
		} else {
			depth--
			if depth == 0 {
				r.Lines = append(r.Lines, "", "---", "", "---")
			}
		}
		if depth > r.MaxDepth {
			r.MaxDepth = depth
		}
	}
	r.FinalDepth = depth

	r.Lines = append(r.Lines,
		"",
		"## Script Execution Completed",
		"",
		"</details>",
		"",
		"## Function Call Summary<small> -> in order of execution</small>",
		"",
		"| No. | File | Function | Calls |",
		"| --- | ---- | -------- | ----- |",
	)
	for i, e := range summary.Entries() {
		r.Lines = append(r.Lines,
			fmt.Sprintf("| %d   | `%s` | `%s` | %d |", i+1, e.Unit, e.Function, e.Calls))
	}
	return r
}

// bullet formats one event as a list item. Event lines without quoted names
// are kept as written.
func bullet(depth int, line tracelog.Line) string {
	if line.Function == "" && line.Unit == "" {
		return indent(depth) + "- " + line.Text
	}
	return fmt.Sprintf("%s- **%s** `%s` in `%s`", indent(depth), line.Kind, line.Function, line.Unit)
}
