// Package tracelog defines the trace log format shared by the instrumenter
// and the offline reconstruction tools.
//
// Instrumented programs append one line per traced event to the log:
//
//	--- debug.log generated using calltrace ---
//	[1] Entering 'main' in 'main.go'
//	[1] Entering 'load' in 'store.go'
//	loading 3 records
//	[0] Exiting 'load' in 'store.go'
//
// The first line is a fixed header identifying the file as a calltrace log.
// Every consumer rejects a file whose first line differs ([ErrInvalidFormat]).
// The remaining lines are Entering and Exiting events, or arbitrary program
// output interleaved at run time.
//
// Event lines are matched loosely: a line containing the word "Entering" is an
// entry event and a line containing "Exiting" is an exit event. Function and
// file names are recovered from the quoted segments of the line, so the text
// layout produced by [EnteringMessage] and [ExitingMessage] is a contract that
// must not change.
package tracelog
