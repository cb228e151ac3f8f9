package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/kolkov/calltrace/internal/config"
)

func TestCollectGoFiles(t *testing.T) {
	tempDir := t.TempDir()

	files := map[string]string{
		"main.go":       "package main\n",
		"helper.go":     "package main\n",
		"main_test.go":  "package main\n",
		"main_debug.go": "package main\n",
		"README.md":     "# readme\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tempDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(tempDir, "sub.go"), 0755); err != nil {
		t.Fatal(err)
	}

	goFiles, err := collectGoFiles([]string{tempDir}, "_debug")
	if err != nil {
		t.Fatalf("collectGoFiles() error: %v", err)
	}

	want := []string{filepath.Join(tempDir, "helper.go"), filepath.Join(tempDir, "main.go")}
	if strings.Join(goFiles, ",") != strings.Join(want, ",") {
		t.Errorf("collectGoFiles() = %v, want %v", goFiles, want)
	}
}

// TestCollectGoFiles_SingleFile tests that named files are kept as given.
func TestCollectGoFiles_SingleFile(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "main_test.go")
	if err := os.WriteFile(testFile, []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	goFiles, err := collectGoFiles([]string{testFile}, "_debug")
	if err != nil {
		t.Fatalf("collectGoFiles() error: %v", err)
	}
	if len(goFiles) != 1 || goFiles[0] != testFile {
		t.Errorf("collectGoFiles() = %v, want [%s]", goFiles, testFile)
	}
}

func TestCollectGoFiles_Errors(t *testing.T) {
	tempDir := t.TempDir()
	notGo := filepath.Join(tempDir, "notes.txt")
	if err := os.WriteFile(notGo, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(tempDir, "empty")
	if err := os.Mkdir(empty, 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		sources []string
		want    string
	}{
		{"missing path", []string{filepath.Join(tempDir, "missing.go")}, "cannot access"},
		{"not a Go file", []string{notGo}, "not a Go source file"},
		{"empty directory", []string{empty}, "no Go source files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collectGoFiles(tt.sources, "_debug")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("collectGoFiles() error = %v, want %q", err, tt.want)
			}
		})
	}
}

// TestApplyInstrumentFlags tests that only flags set on the command line
// override the configuration.
func TestApplyInstrumentFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.KeepGoing = true

	if err := instrumentCmd.Flags().Parse([]string{"--log-path", "/tmp/app.log", "--suffix", "_traced"}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		instrumentCmd.Flags().VisitAll(func(f *pflag.Flag) {
			f.Changed = false
			_ = f.Value.Set(f.DefValue)
		})
	})

	applyInstrumentFlags(instrumentCmd, cfg)

	if cfg.LogPath != "/tmp/app.log" || !cfg.Sink {
		t.Errorf("log path = %q sink = %v, want /tmp/app.log in sink mode", cfg.LogPath, cfg.Sink)
	}
	if cfg.Suffix != "_traced" {
		t.Errorf("Suffix = %q", cfg.Suffix)
	}
	if !cfg.KeepGoing {
		t.Errorf("KeepGoing reset by an unset flag")
	}
}
