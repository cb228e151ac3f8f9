// Package trace instruments Go sources with function entry and exit tracing
// and reconstructs the logs the instrumented programs produce.
//
// # Quick Start
//
// The calltrace tool drives everything from the command line:
//
//	$ calltrace instrument --sink main.go store.go
//	$ go run main_debug.go store_debug.go
//	$ calltrace reformat debug.log
//
// The same operations are available as a library:
//
//	paths, err := trace.Instrument([]string{"main.go", "store.go"}, true, "debug.log")
//	// paths["main.go"] == "main_debug.go"
//
//	summary, err := trace.Aggregate("debug.log")
//	fmt.Println(summary.Total())
//
// # Trace Lines
//
// Every function body gets an Entering line as its first statement and an
// Exiting line before each explicit return:
//
//	[1] Entering 'Store.Load' in 'store.go'
//	[0] Exiting 'Store.Load' in 'store.go'
//
// The number is the occurrence of the definition in the file, fixed when the
// file is instrumented. Exiting lines carry one less. With live counters
// enabled the number is instead the run-time call count of that definition.
//
// A function that falls off the end of its body has no Exiting line. The
// reconstructors then see the call as still open, which nests the lines that
// follow one level deeper.
//
// # Logs
//
// In sink mode each trace statement appends one line to the log file. The
// file starts with [LogHeader] and every reader rejects files that do
// not. Several instrumented programs may append to the same log.
//
// # Reconstruction
//
//   - [ReconstructPlain] regroups a log into indented call groups and appends
//     a call summary. It rewrites the log in place by default.
//   - [ReconstructMarkup] renders the same flow as a markdown document with a
//     frequency table.
//   - [Aggregate] counts calls per unit and function in first-call order.
//
// # Configuration
//
// A [Tracer] binds operations to an explicit [Config]. The package-level
// functions use [DefaultConfig]. [LoadConfig] reads .calltrace.toml and
// CALLTRACE_* environment variables.
package trace
