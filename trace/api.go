// Package trace provides the public API for calltrace.
//
// See doc.go for detailed documentation and examples.
package trace

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kolkov/calltrace/cmd/calltrace/instrument"
	"github.com/kolkov/calltrace/internal/callsummary"
	"github.com/kolkov/calltrace/internal/config"
	"github.com/kolkov/calltrace/internal/reconstruct"
	"github.com/kolkov/calltrace/internal/tracelog"
)

// Config is the configuration every operation of a Tracer reads.
type Config = config.Config

// CallSummary is the insertion-ordered call frequency table of a log.
type CallSummary = callsummary.Summary

// Reconstruction is the rendered form of a trace log.
type Reconstruction = reconstruct.Result

// InstrumentResult is the per-unit outcome of an instrumentation run.
type InstrumentResult = instrument.DriverResult

// LogHeader is the first line of every trace log.
const LogHeader = tracelog.Header

// ErrInvalidLog is returned when a file is not a trace log.
var ErrInvalidLog = tracelog.ErrInvalidFormat

// ErrSameOutput is returned when a markup reconstruction would overwrite the
// log it reads.
var ErrSameOutput = errors.New("markup output would overwrite the trace log")

// DefaultConfig returns the built-in configuration: log debug.log, markdown
// debug_log.md, suffix _debug, strict runs.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// LoadConfig reads .calltrace.toml from dir plus CALLTRACE_* variables.
func LoadConfig(dir string) (*Config, error) {
	return config.LoadConfig(dir)
}

// Option customizes a Tracer.
type Option func(*Tracer)

// WithLogger sends diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithConfirm installs the hook asked before an existing instrumented unit
// is replaced. It is ignored when Config.AssumeYes is set.
func WithConfirm(confirm func(path string) bool) Option {
	return func(t *Tracer) {
		t.confirm = confirm
	}
}

// Tracer runs calltrace operations against one explicit configuration.
//
// Thread Safety: a Tracer holds no mutable state after New and may be shared,
// but operations touching the same files must not run concurrently.
type Tracer struct {
	cfg     Config
	logger  *slog.Logger
	confirm func(path string) bool
}

// New validates cfg and returns a Tracer bound to a copy of it.
// A nil cfg means DefaultConfig.
func New(cfg *Config, opts ...Option) (*Tracer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Tracer{
		cfg:    *cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Config returns a copy of the configuration the Tracer was built with.
func (t *Tracer) Config() Config {
	return t.cfg
}

// Instrument rewrites units into their traced counterparts.
//
// All units form one instrumented set, so imports between them are
// redirected to the instrumented siblings. In sink mode the configured log
// is created with its header if it does not exist yet.
func (t *Tracer) Instrument(units []string) (*InstrumentResult, error) {
	opts := instrument.DriverOptions{
		Suffix:       t.cfg.Suffix,
		OutputDir:    t.cfg.OutputDir,
		KeepGoing:    t.cfg.KeepGoing,
		LiveCounters: t.cfg.LiveCounters,
		ModuleScoped: t.cfg.ModuleScoped,
		KeepImports:  t.cfg.KeepImports,
		Logger:       t.logger,
	}
	if !t.cfg.AssumeYes {
		opts.Confirm = t.confirm
	}

	if t.cfg.Sink {
		logPath, err := filepath.Abs(t.cfg.LogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve trace log path: %w", err)
		}
		opts.Target = instrument.Target{Path: logPath}
		if len(units) > 0 {
			created, err := tracelog.Ensure(logPath)
			if err != nil {
				return nil, err
			}
			if created {
				t.logger.Info("created trace log", "path", logPath)
			}
		}
	}

	return instrument.NewDriver(opts).Run(units)
}

// ReconstructPlain regroups the log at logPath into indented call groups,
// followed by the call summary, and writes it to outPath. An empty outPath
// rewrites the log in place.
//
// A log without the calltrace header is rejected before anything is written.
func (t *Tracer) ReconstructPlain(logPath, outPath string) (*Reconstruction, error) {
	log, err := t.readLog(logPath)
	if err != nil {
		return nil, err
	}
	if outPath == "" {
		outPath = log.Path
	}

	result := reconstruct.Plain(log)
	result.Append(callsummary.Aggregate(log.Lines).PlainLines()...)
	if err := result.WriteFile(outPath); err != nil {
		return nil, err
	}
	t.logger.Info("reconstructed trace log", "log", log.Path, "output", outPath, "groups", result.Groups)
	return result, nil
}

// ReconstructMarkup renders the log at logPath as a markdown document and
// writes it to outPath, Config.MarkdownPath when empty. The log itself is
// never overwritten.
func (t *Tracer) ReconstructMarkup(logPath, outPath string) (*Reconstruction, error) {
	log, err := t.readLog(logPath)
	if err != nil {
		return nil, err
	}
	if outPath == "" {
		outPath = t.cfg.MarkdownPath
	}
	if samePath(outPath, log.Path) {
		return nil, fmt.Errorf("%s: %w", outPath, ErrSameOutput)
	}

	result := reconstruct.Markdown(log, callsummary.Aggregate(log.Lines))
	if err := result.WriteFile(outPath); err != nil {
		return nil, err
	}
	t.logger.Info("rendered trace log", "log", log.Path, "output", outPath, "groups", result.Groups)
	return result, nil
}

// Aggregate counts the Entering lines of the log at logPath per function.
func (t *Tracer) Aggregate(logPath string) (*CallSummary, error) {
	log, err := t.readLog(logPath)
	if err != nil {
		return nil, err
	}
	return callsummary.Aggregate(log.Lines), nil
}

// ClearLog truncates the log at path to its header line. An empty path
// clears Config.LogPath.
func (t *Tracer) ClearLog(path string) error {
	if path == "" {
		path = t.cfg.LogPath
	}
	if err := tracelog.Init(path); err != nil {
		return err
	}
	t.logger.Info("cleared trace log", "path", path)
	return nil
}

// readLog loads logPath, Config.LogPath when empty, and warns when no
// instrumented program has written to it yet.
func (t *Tracer) readLog(logPath string) (*tracelog.Log, error) {
	if logPath == "" {
		logPath = t.cfg.LogPath
	}
	log, err := tracelog.Read(logPath)
	if err != nil {
		return nil, err
	}
	if log.Empty() {
		t.logger.Warn("trace log is empty, run the instrumented program first", "path", logPath)
	}
	return log, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Instrument rewrites units with the default configuration and returns the
// mapping from each written source path to its instrumented path. With
// sinkMode set, trace lines are appended to outputPath (debug.log when empty)
// instead of printed.
func Instrument(units []string, sinkMode bool, outputPath string) (map[string]string, error) {
	cfg := DefaultConfig()
	cfg.Sink = sinkMode
	if outputPath != "" {
		cfg.LogPath = outputPath
	}
	t, err := New(cfg)
	if err != nil {
		return nil, err
	}
	result, err := t.Instrument(units)
	if result == nil {
		return nil, err
	}
	return result.Paths(), err
}

// ReconstructPlain regroups logPath into outPath with the default
// configuration. An empty outPath rewrites the log in place.
func ReconstructPlain(logPath, outPath string) (*Reconstruction, error) {
	t, _ := New(nil)
	return t.ReconstructPlain(logPath, outPath)
}

// ReconstructMarkup renders logPath as markdown into outPath with the
// default configuration.
func ReconstructMarkup(logPath, outPath string) (*Reconstruction, error) {
	t, _ := New(nil)
	return t.ReconstructMarkup(logPath, outPath)
}

// Aggregate returns the call summary of logPath.
func Aggregate(logPath string) (*CallSummary, error) {
	t, _ := New(nil)
	return t.Aggregate(logPath)
}

// ClearLog truncates the log at path to its header line.
func ClearLog(path string) error {
	t, _ := New(nil)
	return t.ClearLog(path)
}
