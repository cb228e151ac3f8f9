package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kolkov/calltrace/internal/config"
)

var instrumentFlags struct {
	sink         bool
	logPath      string
	suffix       string
	outputDir    string
	keepGoing    bool
	liveCounters bool
	moduleScoped bool
}

var instrumentCmd = &cobra.Command{
	Use:   "instrument [flags] <files|dirs...>",
	Short: "Add entry/exit tracing to Go source files",
	Long: `Instrument rewrites each Go file into a traced sibling named with the
instrumented suffix (main.go -> main_debug.go). Directories expand to their
non-test .go files. Imports between the given files are redirected to the
traced siblings.

Examples:
  calltrace instrument main.go store.go
  calltrace instrument --sink --log-path /tmp/app.log ./cmd/app
  calltrace instrument --output-dir traced --keep-going .`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstrument,
}

func init() {
	f := instrumentCmd.Flags()
	f.BoolVar(&instrumentFlags.sink, "sink", false, "append trace lines to the log file instead of printing them")
	f.StringVar(&instrumentFlags.logPath, "log-path", "", "trace log written in sink mode (default from config)")
	f.StringVar(&instrumentFlags.suffix, "suffix", "", "suffix of instrumented files (default from config)")
	f.StringVar(&instrumentFlags.outputDir, "output-dir", "", "directory for instrumented files")
	f.BoolVar(&instrumentFlags.keepGoing, "keep-going", false, "skip files that fail instead of stopping")
	f.BoolVar(&instrumentFlags.liveCounters, "live-counters", false, "number Entering lines with run-time call counts")
	f.BoolVar(&instrumentFlags.moduleScoped, "module-scoped", false, "only rewrite imports inside each file's module")
	rootCmd.AddCommand(instrumentCmd)
}

func runInstrument(cmd *cobra.Command, args []string) error {
	cfg := *settings
	applyInstrumentFlags(cmd, &cfg)

	units, err := collectGoFiles(args, cfg.Suffix)
	if err != nil {
		return err
	}

	tracer, err := newTracer(&cfg)
	if err != nil {
		return err
	}

	result, err := tracer.Instrument(units)
	if result != nil {
		for _, u := range result.Units {
			switch {
			case u.Written:
				status(successColor, "Instrumented: %s -> %s", u.Source, u.Output)
			case u.Err != nil:
				status(errorColor, "Failed: %s", u.Source)
			case u.Skipped:
				status(warnColor, "Skipped: %s", u.Source)
			}
		}
		if cfg.Sink && result.Written() > 0 {
			status(successColor, "Trace log: %s", cfg.LogPath)
		}
	}
	return err
}

// applyInstrumentFlags overrides cfg with the instrument flags the user set.
func applyInstrumentFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("sink") {
		cfg.Sink = instrumentFlags.sink
	}
	if f.Changed("log-path") {
		cfg.LogPath = instrumentFlags.logPath
		cfg.Sink = true
	}
	if f.Changed("suffix") {
		cfg.Suffix = instrumentFlags.suffix
	}
	if f.Changed("output-dir") {
		cfg.OutputDir = instrumentFlags.outputDir
	}
	if f.Changed("keep-going") {
		cfg.KeepGoing = instrumentFlags.keepGoing
	}
	if f.Changed("live-counters") {
		cfg.LiveCounters = instrumentFlags.liveCounters
	}
	if f.Changed("module-scoped") {
		cfg.ModuleScoped = instrumentFlags.moduleScoped
	}
}

// collectGoFiles expands sources into the Go files to instrument.
//
// Files are kept as given. Directories contribute their .go files, except
// tests and files that are already instrumented (their name ends in suffix).
func collectGoFiles(sources []string, suffix string) ([]string, error) {
	var goFiles []string

	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", src, err)
		}

		if !info.IsDir() {
			if filepath.Ext(src) != ".go" {
				return nil, fmt.Errorf("%s is not a Go source file", src)
			}
			goFiles = append(goFiles, src)
			continue
		}

		entries, err := os.ReadDir(src)
		if err != nil {
			return nil, fmt.Errorf("cannot read directory %s: %w", src, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
				continue
			}
			if strings.HasSuffix(strings.TrimSuffix(name, ".go"), suffix) {
				continue
			}
			goFiles = append(goFiles, filepath.Join(src, name))
		}
	}

	if len(goFiles) == 0 {
		return nil, fmt.Errorf("no Go source files found in %s", strings.Join(sources, ", "))
	}
	return goFiles, nil
}
