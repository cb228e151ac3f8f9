package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kolkov/calltrace/internal/config"
	"github.com/kolkov/calltrace/trace"
)

// TestParseRunArgs_SimpleFile tests parsing a single source file.
func TestParseRunArgs_SimpleFile(t *testing.T) {
	bc, programArgs, err := parseRunArgs([]string{"main.go"})
	if err != nil {
		t.Fatalf("parseRunArgs() error: %v", err)
	}

	if len(bc.sourceFiles) != 1 || bc.sourceFiles[0] != "main.go" {
		t.Errorf("Expected [main.go], got %v", bc.sourceFiles)
	}
	if len(programArgs) != 0 {
		t.Errorf("Expected no program args, got %v", programArgs)
	}
}

// TestParseRunArgs_FileWithArgs tests source files + program arguments.
func TestParseRunArgs_FileWithArgs(t *testing.T) {
	args := []string{"main.go", "helper.go", "arg1", "--flag=value", "other.go"}

	bc, programArgs, err := parseRunArgs(args)
	if err != nil {
		t.Fatalf("parseRunArgs() error: %v", err)
	}

	if strings.Join(bc.sourceFiles, ",") != "main.go,helper.go" {
		t.Errorf("Expected [main.go helper.go], got %v", bc.sourceFiles)
	}
	// Everything after the first program argument belongs to the program.
	expectedArgs := []string{"arg1", "--flag=value", "other.go"}
	if strings.Join(programArgs, " ") != strings.Join(expectedArgs, " ") {
		t.Errorf("Expected program args %v, got %v", expectedArgs, programArgs)
	}
}

// TestParseRunArgs_BuildFlags tests build flags before source files.
func TestParseRunArgs_BuildFlags(t *testing.T) {
	args := []string{"-tags", "debug", "-trimpath", "main.go", "-v"}

	bc, programArgs, err := parseRunArgs(args)
	if err != nil {
		t.Fatalf("parseRunArgs() error: %v", err)
	}

	if strings.Join(bc.buildFlags, " ") != "-tags debug -trimpath" {
		t.Errorf("Expected build flags [-tags debug -trimpath], got %v", bc.buildFlags)
	}
	if len(programArgs) != 1 || programArgs[0] != "-v" {
		t.Errorf("Expected program args [-v], got %v", programArgs)
	}
}

func TestParseRunArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"no Go files", []string{"-tags", "x", "main"}},
		{"managed output flag", []string{"-o", "bin", "main.go"}},
		{"managed overlay flag", []string{"-overlay", "x.json", "main.go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parseRunArgs(tt.args); err == nil {
				t.Errorf("parseRunArgs(%v) succeeded", tt.args)
			}
		})
	}
}

func TestBuildArgs(t *testing.T) {
	bc := &buildConfig{
		sourceFiles: []string{"main.go", "store.go"},
		buildFlags:  []string{"-tags", "debug"},
		outputFile:  "/tmp/program",
	}
	got := strings.Join(buildArgs(bc, "/tmp/overlay.json"), " ")
	want := "build -overlay /tmp/overlay.json -o /tmp/program -tags debug main.go store.go"
	if got != want {
		t.Errorf("buildArgs() = %q, want %q", got, want)
	}
}

// TestWorkspace tests workspace creation, the overlay file and cleanup.
func TestWorkspace(t *testing.T) {
	ws, err := createWorkspace()
	if err != nil {
		t.Fatalf("createWorkspace() error: %v", err)
	}
	if !strings.Contains(ws.dir, "calltrace-run-") {
		t.Errorf("Workspace directory name doesn't match pattern: %s", ws.dir)
	}

	out := filepath.Join(ws.dir, "main_debug.go")
	path, err := ws.writeOverlay(map[string]string{"main.go": out})
	if err != nil {
		t.Fatalf("writeOverlay() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var overlay struct {
		Replace map[string]string
	}
	if err := json.Unmarshal(data, &overlay); err != nil {
		t.Fatalf("overlay is not JSON: %v", err)
	}
	abs, _ := filepath.Abs("main.go")
	if overlay.Replace[abs] != out {
		t.Errorf("overlay = %v, want %s -> %s", overlay.Replace, abs, out)
	}

	dir := ws.dir
	ws.cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("Workspace directory %s still exists after cleanup", dir)
	}
}

// TestRunTraced tests the whole run flow: instrument into a workspace, build
// with the overlay, execute, and reformat the log.
func TestRunTraced(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a program")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}

	dir := t.TempDir()
	mainFile := filepath.Join(dir, "main.go")
	src := `package main

import "os"

func helper() int {
	return 1
}

func main() {
	if helper() != 1 {
		os.Exit(2)
	}
	os.Exit(3)
}
`
	if err := os.WriteFile(mainFile, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	settings = config.DefaultConfig()
	settings.LogPath = filepath.Join(dir, "debug.log")
	runFlags.reformat = true
	t.Cleanup(func() { runFlags.reformat = false })

	err := runTraced(runCmd, []string{mainFile})
	if exitCode(err) != 3 {
		t.Fatalf("runTraced() error = %v, want program status 3", err)
	}

	data, err := os.ReadFile(settings.LogPath)
	if err != nil {
		t.Fatalf("Trace log not written: %v", err)
	}
	log := string(data)
	for _, want := range []string{
		trace.LogHeader,
		"[1] Entering 'main' in 'main.go'",
		"[1] Entering 'helper' in 'main.go'",
		"[0] Exiting 'helper' in 'main.go'",
		"main.go | helper: Called 1 times",
	} {
		if !strings.Contains(log, want) {
			t.Errorf("Trace log missing %q:\n%s", want, log)
		}
	}

	if data, _ := os.ReadFile(mainFile); string(data) != src {
		t.Errorf("Source file modified")
	}
}
