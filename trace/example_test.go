package trace_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kolkov/calltrace/trace"
)

// Example aggregates a log written by an instrumented program.
func Example() {
	dir, _ := os.MkdirTemp("", "calltrace-example-*")
	defer func() { _ = os.RemoveAll(dir) }()

	logPath := filepath.Join(dir, "debug.log")
	_ = os.WriteFile(logPath, []byte(trace.LogHeader+"\n"+
		"[1] Entering 'main' in 'main.go'\n"+
		"[1] Entering 'load' in 'store.go'\n"+
		"[0] Exiting 'load' in 'store.go'\n"+
		"[1] Entering 'load' in 'store.go'\n"+
		"[0] Exiting 'load' in 'store.go'\n"), 0644)

	summary, err := trace.Aggregate(logPath)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, e := range summary.Entries() {
		fmt.Printf("%s: %d\n", e.Key(), e.Calls)
	}
	fmt.Println("total:", summary.Total())

	// Output:
	// main.go | main: 1
	// store.go | load: 2
	// total: 3
}

// Example_reconstructPlain regroups a log into call groups.
func Example_reconstructPlain() {
	dir, _ := os.MkdirTemp("", "calltrace-example-*")
	defer func() { _ = os.RemoveAll(dir) }()

	logPath := filepath.Join(dir, "debug.log")
	_ = os.WriteFile(logPath, []byte(trace.LogHeader+"\n"+
		"[1] Entering 'f' in 'a.go'\n"+
		"hello\n"+
		"[0] Exiting 'f' in 'a.go'\n"), 0644)

	result, err := trace.ReconstructPlain(logPath, "")
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, line := range result.Lines[:7] {
		fmt.Printf("%q\n", line)
	}

	// Output:
	// "    --- debug.log generated using calltrace ---"
	// ""
	// ">>> Starting group:"
	// "    [1] Entering 'f' in 'a.go'"
	// "    hello"
	// "[0] Exiting 'f' in 'a.go'"
	// "<<< Ending group:"
}
