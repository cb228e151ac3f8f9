package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/kolkov/calltrace/trace"
)

func sampleSummary(t *testing.T) *trace.CallSummary {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "debug.log")
	content := trace.LogHeader + "\n" +
		"[1] Entering 'main' in 'main.go'\n" +
		"[1] Entering 'load' in 'store.go'\n" +
		"[0] Exiting 'load' in 'store.go'\n" +
		"[1] Entering 'load' in 'store.go'\n" +
		"[0] Exiting 'load' in 'store.go'\n"
	if err := os.WriteFile(logPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	summary, err := trace.Aggregate(logPath)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	return summary
}

func TestFormatSummary(t *testing.T) {
	summary := sampleSummary(t)

	tests := []struct {
		format string
		want   string
	}{
		{
			format: "text",
			want:   "main.go | main: Called 1 times\nstore.go | load: Called 2 times\nTotal function calls: 3\n",
		},
		{
			format: "json",
			want:   "{\n  \"main.go | main\": 1,\n  \"store.go | load\": 2\n}\n",
		},
		{
			format: "yaml",
			want:   "main.go | main: 1\nstore.go | load: 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := formatSummary(summary, tt.format)
			if err != nil {
				t.Fatalf("formatSummary() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("formatSummary(%s) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestFormatSummary_UnknownFormat(t *testing.T) {
	_, err := formatSummary(sampleSummary(t), "csv")
	if err == nil || !strings.Contains(err.Error(), "unknown summary format") {
		t.Errorf("formatSummary(csv) error = %v", err)
	}
}

// TestClearCommand runs the clear command through the root command with a
// config file that names the log.
func TestClearCommand(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	if err := os.WriteFile(logPath, []byte(trace.LogHeader+"\nleftover\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := "log_path = " + strconv.Quote(logPath) + "\n"
	if err := os.WriteFile(filepath.Join(dir, ".calltrace.toml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	rootCmd.SetArgs([]string{"--config", dir, "--quiet", "clear"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != trace.LogHeader+"\n" {
		t.Errorf("log after clear = %q", data)
	}
}
