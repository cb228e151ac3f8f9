// Package instrument - Error types for instrumentation.
//
// Errors carry the source position (file:line:column) where instrumentation
// failed and, when one exists, a suggestion for working around it.
//
// Example output:
//
//	main.go:42:3: cannot place exit trace before return statement
//
//	Suggestion: Move the return statement into a block
package instrument

import (
	"errors"
	"fmt"
	"go/token"
)

// ErrNoUnits is returned when the driver is given an empty unit list.
var ErrNoUnits = errors.New("no source units to instrument")

// ErrOutputConflict is returned when two units would be written to the same
// output path.
var ErrOutputConflict = errors.New("output path already produced by another unit")

// InstrumentationError represents an error during instrumentation with context.
//
// Fields:
//   - File: Source file path where error occurred
//   - Line: Line number (1-indexed)
//   - Column: Column number (1-indexed)
//   - Message: Human-readable error description
//   - Suggestion: Optional hint for fixing the error
//
// Thread Safety: Immutable after creation, safe for concurrent use.
type InstrumentationError struct {
	File       string // Source file path
	Line       int    // Line number (1-indexed)
	Column     int    // Column number (1-indexed)
	Message    string // Error message
	Suggestion string // Optional suggestion for fixing (empty if none)
}

// Error implements the error interface.
//
// Format: file:line:column: message
//
// If Suggestion is non-empty, it's appended on a new line with "Suggestion: " prefix.
func (e *InstrumentationError) Error() string {
	result := fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	if e.Suggestion != "" {
		result += fmt.Sprintf("\n\nSuggestion: %s", e.Suggestion)
	}
	return result
}

// NewInstrumentationError creates an error with file position from an AST
// position.
//
// Parameters:
//   - fset: File set containing position information
//   - pos: Token position (from AST node.Pos())
//   - msg: Error message describing what went wrong
//
// Returns:
//   - *InstrumentationError: Error with file position populated
func NewInstrumentationError(fset *token.FileSet, pos token.Pos, msg string) *InstrumentationError {
	position := fset.Position(pos)
	return &InstrumentationError{
		File:    position.Filename,
		Line:    position.Line,
		Column:  position.Column,
		Message: msg,
	}
}

// NewInstrumentationErrorWithSuggestion creates an error with suggestion.
//
// Use this when you can provide actionable guidance to the user.
func NewInstrumentationErrorWithSuggestion(fset *token.FileSet, pos token.Pos, msg, suggestion string) *InstrumentationError {
	err := NewInstrumentationError(fset, pos, msg)
	err.Suggestion = suggestion
	return err
}

// ParseError reports a unit that is not valid Go source.
//
// Err is the parser diagnostic, usually a go/scanner.ErrorList with the
// position of every syntax error found.
type ParseError struct {
	Unit string // Source file path
	Err  error  // Underlying parser error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Unit, e.Err)
}

// Unwrap returns the parser error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
