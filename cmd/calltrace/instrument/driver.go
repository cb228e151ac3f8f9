// Package instrument - Multi-unit driver.
//
// The driver instruments a set of units together: it computes the
// instrumented set once, rewrites each unit against it, and writes each
// result next to its source (or under an output directory) with the
// instrumented suffix before the extension:
//
//	store.go → store_debug.go
package instrument

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kolkov/calltrace/cmd/calltrace/gomod"
)

// DriverOptions configures a multi-unit run.
type DriverOptions struct {
	// Target selects console or sink output for every unit.
	Target Target

	// Suffix forms output names and rewritten imports. Defaults to
	// DefaultSuffix.
	Suffix string

	// OutputDir receives the instrumented units. Empty writes each one
	// next to its source.
	OutputDir string

	// KeepGoing skips units that fail and reports their errors together
	// at the end. By default the first failure halts the run.
	KeepGoing bool

	// LiveCounters enables run-time call numbering (see Options).
	LiveCounters bool

	// ModuleScoped restricts import rewriting to imports inside the
	// module of each unit, found through the nearest go.mod.
	ModuleScoped bool

	// KeepImports disables cross-unit import rewriting.
	KeepImports bool

	// Confirm is asked before an existing output file is replaced.
	// Returning false skips that unit. Nil replaces without asking.
	Confirm func(path string) bool

	// Logger receives progress output. Nil discards it.
	Logger *slog.Logger
}

// UnitResult is the outcome for one unit.
type UnitResult struct {
	Source     string            // Source path as given
	Output     string            // Output path (set even when skipped)
	Identifier string            // Unit identifier used in trace lines
	Written    bool              // Output was written
	Skipped    bool              // Unit was skipped (declined overwrite or failure in lenient mode)
	Err        error             // Failure, if any
	Result     *InstrumentResult // Instrumentation result, nil on failure
}

// DriverResult is the outcome of a run, in unit order.
type DriverResult struct {
	Instrumented []string     // Sorted base names of the instrumented set
	Units        []UnitResult // One entry per unit processed
}

// Paths maps each written source path to its output path.
func (r *DriverResult) Paths() map[string]string {
	paths := make(map[string]string, len(r.Units))
	for _, u := range r.Units {
		if u.Written {
			paths[u.Source] = u.Output
		}
	}
	return paths
}

// Unit returns the result for a unit identifier, or nil.
func (r *DriverResult) Unit(identifier string) *UnitResult {
	for i := range r.Units {
		if r.Units[i].Identifier == identifier {
			return &r.Units[i]
		}
	}
	return nil
}

// Written returns the number of units written.
func (r *DriverResult) Written() int {
	n := 0
	for _, u := range r.Units {
		if u.Written {
			n++
		}
	}
	return n
}

// Driver instruments sets of units.
//
// Thread Safety: NOT thread-safe. Units are processed sequentially.
type Driver struct {
	opts    DriverOptions
	logger  *slog.Logger
	modules map[string]*gomod.Module
}

// NewDriver creates a driver.
func NewDriver(opts DriverOptions) *Driver {
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		opts:    opts,
		logger:  logger,
		modules: make(map[string]*gomod.Module),
	}
}

// OutputPath returns where the instrumented form of source is written.
func (d *Driver) OutputPath(source string) string {
	dir, base := filepath.Split(source)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)] + d.opts.Suffix + ext
	if d.opts.OutputDir != "" {
		return filepath.Join(d.opts.OutputDir, name)
	}
	return filepath.Join(dir, name)
}

// Run instruments units in order.
//
// Returns:
//   - *DriverResult: Per-unit outcomes, including units completed before a
//     failure
//   - error: ErrNoUnits for an empty list; in strict mode the first
//     failure; in lenient mode all failures joined
//
// A declined overwrite skips the unit and is not an error.
func (d *Driver) Run(units []string) (*DriverResult, error) {
	if len(units) == 0 {
		return nil, ErrNoUnits
	}

	result := &DriverResult{Instrumented: InstrumentedSet(units)}
	d.logger.Info("instrumenting units",
		"count", len(units),
		"instrumented", result.Instrumented)

	if d.opts.OutputDir != "" {
		if err := os.MkdirAll(d.opts.OutputDir, 0755); err != nil {
			return result, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	produced := make(map[string]string, len(units))
	var errs []error
	for _, source := range units {
		unit := d.runUnit(source, result.Instrumented, produced)
		result.Units = append(result.Units, unit)
		if unit.Err == nil {
			continue
		}
		if !d.opts.KeepGoing {
			return result, unit.Err
		}
		d.logger.Warn("skipping unit", "unit", source, "error", unit.Err)
		errs = append(errs, unit.Err)
	}
	return result, errors.Join(errs...)
}

func (d *Driver) runUnit(source string, instrumented []string, produced map[string]string) UnitResult {
	unit := UnitResult{
		Source:     source,
		Output:     d.OutputPath(source),
		Identifier: filepath.Base(source),
	}

	fail := func(err error) UnitResult {
		unit.Err = err
		unit.Skipped = true
		return unit
	}

	if other, ok := produced[unit.Output]; ok {
		return fail(fmt.Errorf("%s: %w: %s", source, ErrOutputConflict, other))
	}

	src, err := os.ReadFile(source)
	if err != nil {
		return fail(fmt.Errorf("failed to read unit: %w", err))
	}

	opts := Options{
		Unit:         unit.Identifier,
		Suffix:       d.opts.Suffix,
		Target:       d.opts.Target,
		LiveCounters: d.opts.LiveCounters,
		Logger:       d.logger,
	}
	if !d.opts.KeepImports {
		opts.Instrumented = instrumented
	}
	if d.opts.ModuleScoped && opts.Instrumented != nil {
		mod, err := d.module(filepath.Dir(source))
		if err != nil {
			// Outside any module nothing is in scope.
			d.logger.Warn("no module for unit, imports left unchanged", "unit", source, "error", err)
			opts.Instrumented = nil
		} else {
			opts.ModulePath = mod.Path
		}
	}

	res, err := InstrumentFile(source, src, opts)
	if err != nil {
		return fail(err)
	}
	unit.Result = res

	if _, err := os.Stat(unit.Output); err == nil && d.opts.Confirm != nil {
		if !d.opts.Confirm(unit.Output) {
			d.logger.Info("overwrite declined", "output", unit.Output)
			unit.Skipped = true
			return unit
		}
	}

	if err := os.WriteFile(unit.Output, []byte(res.Code), 0644); err != nil {
		return fail(fmt.Errorf("failed to write %s: %w", unit.Output, err))
	}
	unit.Written = true
	produced[unit.Output] = source

	d.logger.Info("instrumented unit",
		"unit", source,
		"output", unit.Output,
		"functions", res.Stats.FunctionsTraced,
		"exits", res.Stats.ExitsTraced,
		"imports", res.Stats.ImportsRewritten)
	return unit
}

// module returns the module containing dir, caching lookups.
func (d *Driver) module(dir string) (*gomod.Module, error) {
	if mod, ok := d.modules[dir]; ok {
		return mod, nil
	}
	mod, err := gomod.Lookup(dir)
	if err != nil {
		return nil, err
	}
	d.modules[dir] = mod
	return mod, nil
}
