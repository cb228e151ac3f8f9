// Package main implements the calltrace command-line tool.
//
// calltrace adds function entry/exit tracing to Go source files and turns
// the resulting trace logs into readable call trees and summaries.
//
// Usage:
//
//	calltrace instrument [flags] <files|dirs...>
//	calltrace run [flags] <files...> [program args]
//	calltrace reformat [LOG]
//	calltrace markdown [LOG] [-o FILE]
//	calltrace summary [LOG] [--format text|json|yaml]
//	calltrace clear [LOG]
//	calltrace config init
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kolkov/calltrace/internal/config"
	"github.com/kolkov/calltrace/trace"
)

// Global flags.
var (
	configDir string
	assumeYes bool
	colorMode string
	verbosity int
	quiet     bool
)

// Loaded once per invocation by loadSettings.
var (
	settings *config.Config
	logger   = slog.New(slog.DiscardHandler)
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "calltrace",
	Short: "Function call tracing for Go sources",
	Long: `calltrace instruments Go source files so that every function logs its
entry and its explicit returns, then reconstructs the logs the instrumented
programs write into nested call groups, markdown reports and call counts.`,
	Version:           trace.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing "+config.FileName)
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "overwrite existing files without asking")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", config.ColorAuto, "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase diagnostic output (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress diagnostics and non-essential output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode reports err and returns the process exit status for it.
func exitCode(err error) int {
	var exitErr *programExitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	if errors.Is(err, errOverwriteDeclined) {
		_, _ = warnColor.Fprintf(os.Stderr, "Skipped: %v\n", err)
		return 0
	}
	_, _ = errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// loadSettings reads the configuration, applies the global flags on top of
// it and sets up colors and diagnostics.
func loadSettings(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("yes") {
		cfg.AssumeYes = assumeYes
	}
	if flags.Changed("color") {
		cfg.Color = colorMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	color.NoColor = !colorEnabled(cfg.Color, isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "")

	level := levelFromString(cfg.LogLevel)
	if verbosity > 0 || quiet {
		level = LevelFromVerbosity(verbosity, quiet)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	settings = cfg
	return nil
}

// newTracer builds a Tracer for cfg that asks on the terminal before
// replacing existing outputs.
func newTracer(cfg *config.Config) (*trace.Tracer, error) {
	return trace.New(cfg,
		trace.WithLogger(logger),
		trace.WithConfirm(stdinPrompter().Confirm),
	)
}

// colorEnabled resolves a color mode. tty reports whether auto mode may
// use color.
func colorEnabled(mode string, tty bool) bool {
	switch mode {
	case config.ColorOn:
		return true
	case config.ColorOff:
		return false
	default:
		return tty
	}
}

// LevelFromVerbosity converts CLI verbosity flags to a slog.Level.
// quiet suppresses everything; 0 is warn, 1 info, 2 or more debug.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	if quiet {
		return slog.Level(100)
	}
	switch verbosity {
	case 0:
		return slog.LevelWarn
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func levelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// status prints a user-facing line unless --quiet is set.
func status(c *color.Color, format string, args ...interface{}) {
	if quiet {
		return
	}
	_, _ = c.Fprintf(os.Stderr, format+"\n", args...)
}

// programExitError carries the exit status of a program started by run.
type programExitError struct {
	code int
}

func (e *programExitError) Error() string {
	return fmt.Sprintf("program exited with status %d", e.code)
}
