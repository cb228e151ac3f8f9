package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
)

var runFlags struct {
	reformat bool
	markdown bool
	fresh    bool
}

var runCmd = &cobra.Command{
	Use:   "run [flags] [-- build flags] <files...> [program args]",
	Short: "Instrument, build and run a program with tracing",
	Long: `Run instruments the given files in sink mode, builds them with the
instrumented files overlaid on the originals, and runs the program. Trace
lines are appended to the configured log. The sources are not modified.

Arguments after the first .go file that are not .go files are passed to
the program. Go build flags go after "--", before the files.

Examples:
  calltrace run main.go store.go
  calltrace run --fresh --reformat main.go -port 8080
  calltrace run -- -tags debug main.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTraced,
}

func init() {
	runCmd.Flags().BoolVar(&runFlags.reformat, "reformat", false, "reformat the trace log after the program exits")
	runCmd.Flags().BoolVar(&runFlags.markdown, "markdown", false, "render the trace log as markdown after the program exits")
	runCmd.Flags().BoolVar(&runFlags.fresh, "fresh", false, "clear the trace log before running")
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

// buildConfig describes one go build invocation.
type buildConfig struct {
	sourceFiles []string
	buildFlags  []string
	workDir     string
	outputFile  string
}

// workspace is a temporary directory holding instrumented files, the
// overlay description and the binary.
type workspace struct {
	dir string
}

func createWorkspace() (*workspace, error) {
	dir, err := os.MkdirTemp("", "calltrace-run-*")
	if err != nil {
		return nil, err
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) cleanup() {
	_ = os.RemoveAll(w.dir)
}

func runTraced(_ *cobra.Command, args []string) error {
	bc, programArgs, err := parseRunArgs(args)
	if err != nil {
		return err
	}

	ws, err := createWorkspace()
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	defer ws.cleanup()

	cfg := *settings
	cfg.Sink = true
	cfg.OutputDir = ws.dir
	cfg.KeepImports = true
	cfg.AssumeYes = true
	if cfg.LogPath, err = filepath.Abs(cfg.LogPath); err != nil {
		return fmt.Errorf("failed to resolve trace log path: %w", err)
	}

	tracer, err := newTracer(&cfg)
	if err != nil {
		return err
	}
	if runFlags.fresh {
		if err := tracer.ClearLog(""); err != nil {
			return err
		}
	}

	result, err := tracer.Instrument(bc.sourceFiles)
	if err != nil {
		return fmt.Errorf("failed to instrument sources: %w", err)
	}

	overlay, err := ws.writeOverlay(result.Paths())
	if err != nil {
		return err
	}
	bc.outputFile = filepath.Join(ws.dir, "program")
	if runtime.GOOS == "windows" {
		bc.outputFile += ".exe"
	}
	if err := build(bc, overlay); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	logger.Info("running instrumented program", "binary", bc.outputFile, "log", cfg.LogPath)
	code := executeBinary(bc.outputFile, programArgs)

	// The markdown report reads the raw log, so it goes before reformat
	// rewrites the log in place.
	if runFlags.markdown {
		if _, err := tracer.ReconstructMarkup(cfg.LogPath, ""); err != nil {
			return err
		}
		status(successColor, "Markdown written: %s", cfg.MarkdownPath)
	}
	if runFlags.reformat {
		if _, err := tracer.ReconstructPlain(cfg.LogPath, ""); err != nil {
			return err
		}
		status(successColor, "Reformatted: %s", cfg.LogPath)
	}

	if code != 0 {
		return &programExitError{code: code}
	}
	return nil
}

// parseRunArgs separates source files from program arguments.
//
// Build flags come before the source files. The first argument that is not
// a .go file after at least one .go file starts the program arguments.
func parseRunArgs(args []string) (*buildConfig, []string, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("no source files specified")
	}

	var sourceFiles []string
	var programArgs []string
	var buildFlags []string
	sawGoFile := false
	inProgramArgs := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if inProgramArgs {
			programArgs = append(programArgs, arg)
			continue
		}

		// Build flags that take a value
		if !sawGoFile && (arg == "-ldflags" || arg == "-gcflags" ||
			arg == "-tags" || arg == "-buildmode") {
			buildFlags = append(buildFlags, arg)
			if i+1 < len(args) {
				i++
				buildFlags = append(buildFlags, args[i])
			}
			continue
		}
		if !sawGoFile && (arg == "-o" || arg == "-overlay") {
			return nil, nil, fmt.Errorf("build flag %s is managed by calltrace run", arg)
		}

		if filepath.Ext(arg) == ".go" {
			sourceFiles = append(sourceFiles, arg)
			sawGoFile = true
			continue
		}

		if sawGoFile {
			inProgramArgs = true
			programArgs = append(programArgs, arg)
			continue
		}

		buildFlags = append(buildFlags, arg)
	}

	if len(sourceFiles) == 0 {
		return nil, nil, fmt.Errorf("no Go source files specified")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	return &buildConfig{
		sourceFiles: sourceFiles,
		buildFlags:  buildFlags,
		workDir:     cwd,
	}, programArgs, nil
}

// writeOverlay writes the go build -overlay file replacing each source with
// its instrumented file and returns its path.
func (w *workspace) writeOverlay(paths map[string]string) (string, error) {
	replace := make(map[string]string, len(paths))
	for src, out := range paths {
		abs, err := filepath.Abs(src)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", src, err)
		}
		replace[abs] = out
	}

	data, err := json.MarshalIndent(struct {
		Replace map[string]string
	}{replace}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode overlay: %w", err)
	}

	path := filepath.Join(w.dir, "overlay.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write overlay: %w", err)
	}
	return path, nil
}

// buildArgs returns the go command arguments for bc.
func buildArgs(bc *buildConfig, overlay string) []string {
	args := []string{"build", "-overlay", overlay, "-o", bc.outputFile}
	args = append(args, bc.buildFlags...)
	return append(args, bc.sourceFiles...)
}

func build(bc *buildConfig, overlay string) error {
	args := buildArgs(bc, overlay)
	logger.Debug("building", "args", args)

	cmd := exec.Command("go", args...)
	cmd.Dir = bc.workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// executeBinary runs the binary with args, forwarding the standard streams,
// and returns its exit code.
func executeBinary(binaryPath string, args []string) int {
	cmd := exec.Command(binaryPath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing binary: %v\n", err)
		return 1
	}
	return 0
}
