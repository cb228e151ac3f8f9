package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kolkov/calltrace/trace"
)

var (
	reformatOutput string
	markdownOutput string
	summaryFormat  string
)

var reformatCmd = &cobra.Command{
	Use:   "reformat [LOG]",
	Short: "Regroup a trace log into nested call groups",
	Long: `Reformat rewrites the trace log in place (or into --output) with every
top-level call in its own indented group, followed by the call summary, and
prints the result.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReformat,
}

var markdownCmd = &cobra.Command{
	Use:   "markdown [LOG]",
	Short: "Render a trace log as a markdown report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMarkdown,
}

var summaryCmd = &cobra.Command{
	Use:   "summary [LOG]",
	Short: "Count calls per function in a trace log",
	Long: `Summary prints how many times each function was entered, in the order
the functions were first called.

Formats:
  text  key: Called N times lines
  json  one object, keys in first-call order
  yaml  one mapping, keys in first-call order`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummary,
}

var clearCmd = &cobra.Command{
	Use:   "clear [LOG]",
	Short: "Reset a trace log to its header line",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClear,
}

func init() {
	reformatCmd.Flags().StringVarP(&reformatOutput, "output", "o", "", "write here instead of rewriting the log")
	markdownCmd.Flags().StringVarP(&markdownOutput, "output", "o", "", "markdown file (default from config)")
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "text", "output format (text|json|yaml)")

	rootCmd.AddCommand(reformatCmd)
	rootCmd.AddCommand(markdownCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(clearCmd)
}

// logArg returns the log named on the command line, or the configured one.
func logArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return settings.LogPath
}

func runReformat(_ *cobra.Command, args []string) error {
	tracer, err := newTracer(settings)
	if err != nil {
		return err
	}
	result, err := tracer.ReconstructPlain(logArg(args), reformatOutput)
	if err != nil {
		return err
	}
	if !quiet {
		if _, err := result.WriteTo(os.Stdout); err != nil {
			return err
		}
	}
	return nil
}

func runMarkdown(_ *cobra.Command, args []string) error {
	tracer, err := newTracer(settings)
	if err != nil {
		return err
	}

	out := markdownOutput
	if out == "" {
		out = settings.MarkdownPath
	}
	if err := confirmWrite(out, settings.AssumeYes); err != nil {
		return err
	}

	result, err := tracer.ReconstructMarkup(logArg(args), out)
	if err != nil {
		return err
	}
	status(successColor, "Markdown written: %s (%d call groups)", out, result.Groups)
	return nil
}

func runSummary(_ *cobra.Command, args []string) error {
	tracer, err := newTracer(settings)
	if err != nil {
		return err
	}
	summary, err := tracer.Aggregate(logArg(args))
	if err != nil {
		return err
	}
	text, err := formatSummary(summary, summaryFormat)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

// formatSummary renders summary in one of the summary command's formats.
func formatSummary(summary *trace.CallSummary, format string) (string, error) {
	switch strings.ToLower(format) {
	case "text":
		var b strings.Builder
		for _, key := range summary.Keys() {
			fmt.Fprintf(&b, "%s: Called %d times\n", key, summary.Count(key))
		}
		fmt.Fprintf(&b, "Total function calls: %d\n", summary.Total())
		return b.String(), nil
	case "json":
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode summary: %w", err)
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(summary)
		if err != nil {
			return "", fmt.Errorf("failed to encode summary: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown summary format %q (want text, json or yaml)", format)
	}
}

func runClear(_ *cobra.Command, args []string) error {
	tracer, err := newTracer(settings)
	if err != nil {
		return err
	}
	path := logArg(args)
	if err := tracer.ClearLog(path); err != nil {
		return err
	}
	status(successColor, "Cleared: %s", path)
	return nil
}
