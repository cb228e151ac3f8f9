package tracelog

import (
	"fmt"
	"strings"
)

// Header is the first line of every trace log.
const Header = "--- debug.log generated using calltrace ---"

const (
	enteringWord = "Entering"
	exitingWord  = "Exiting"
)

// EnteringFormat and ExitingFormat are the printf layouts of event lines.
// The verbs are, in order: occurrence number, function name, unit name.
const (
	EnteringFormat = "[%d] Entering '%s' in '%s'"
	ExitingFormat  = "[%d] Exiting '%s' in '%s'"
)

// Kind classifies a trace log line.
type Kind int

const (
	// Other is any line that is not a trace event (program output).
	Other Kind = iota
	// Entering marks a function entry event.
	Entering
	// Exiting marks a function exit event.
	Exiting
)

// String returns the keyword used in the log for k.
func (k Kind) String() string {
	switch k {
	case Entering:
		return enteringWord
	case Exiting:
		return exitingWord
	default:
		return "Other"
	}
}

// Line is one classified line of a trace log.
//
// Function and Unit are filled for Entering and Exiting lines when the
// line carries at least one quoted segment.
type Line struct {
	Text     string
	Kind     Kind
	Function string
	Unit     string
}

// EnteringMessage formats an entry event line.
func EnteringMessage(n int, function, unit string) string {
	return fmt.Sprintf(EnteringFormat, n, function, unit)
}

// ExitingMessage formats an exit event line.
func ExitingMessage(n int, function, unit string) string {
	return fmt.Sprintf(ExitingFormat, n, function, unit)
}

// Classify tags a raw log line.
//
// A line containing "Entering" is an entry event, otherwise a line containing
// "Exiting" is an exit event, otherwise it is Other.
func Classify(text string) Line {
	line := Line{Text: text}
	switch {
	case strings.Contains(text, enteringWord):
		line.Kind = Entering
	case strings.Contains(text, exitingWord):
		line.Kind = Exiting
	default:
		return line
	}
	line.Function, line.Unit, _ = FunctionAndUnit(text)
	return line
}

// FunctionAndUnit extracts the function and unit names from an event line.
//
// The function name is the text between the first pair of single quotes.
// The unit name is the last whitespace-delimited token with surrounding
// single quotes trimmed. ok is false when the line has no quoted segment.
func FunctionAndUnit(text string) (function, unit string, ok bool) {
	parts := strings.Split(text, "'")
	if len(parts) < 2 {
		return "", "", false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return parts[1], "", true
	}
	return parts[1], strings.Trim(fields[len(fields)-1], "'"), true
}

// QuotedFields extracts function and unit names from the quote-delimited
// segments of an event line: parts 1 and 3 when splitting on single quotes.
// ok is false when the line has fewer than four segments.
func QuotedFields(text string) (function, unit string, ok bool) {
	parts := strings.Split(text, "'")
	if len(parts) < 4 {
		return "", "", false
	}
	return parts[1], parts[3], true
}
