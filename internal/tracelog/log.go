package tracelog

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidFormat is returned when a file does not start with Header.
var ErrInvalidFormat = errors.New("not a calltrace log: missing header line")

// Log is a parsed trace log.
type Log struct {
	// Path is the file the log was read from.
	Path string

	// HeaderLine is the first line as it appears in the file.
	HeaderLine string

	// Lines holds every line after the header, in file order.
	Lines []Line
}

// Read loads and classifies the trace log at path.
//
// The file must start with Header (surrounding whitespace ignored),
// otherwise ErrInvalidFormat is returned and nothing else is read.
func Read(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace log: %w", err)
	}
	return Parse(path, string(data))
}

// Parse classifies the content of a trace log. path is only recorded.
func Parse(path, content string) (*Log, error) {
	raw := splitLines(content)
	if len(raw) == 0 || strings.TrimSpace(raw[0]) != Header {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidFormat)
	}

	log := &Log{
		Path:       path,
		HeaderLine: raw[0],
		Lines:      make([]Line, 0, len(raw)-1),
	}
	for _, text := range raw[1:] {
		log.Lines = append(log.Lines, Classify(text))
	}
	return log, nil
}

// Valid reports whether the file at path starts with Header.
// Unreadable files are not valid.
func Valid(path string) bool {
	_, err := Read(path)
	return err == nil
}

// Empty reports whether the log holds nothing but whitespace after the
// header, meaning no instrumented program has written to it yet.
func (l *Log) Empty() bool {
	for _, line := range l.Lines {
		if strings.TrimSpace(line.Text) != "" {
			return false
		}
	}
	return true
}

// Count returns the number of lines of the given kind.
func (l *Log) Count(kind Kind) int {
	n := 0
	for _, line := range l.Lines {
		if line.Kind == kind {
			n++
		}
	}
	return n
}

// Init creates or truncates the log at path and writes the header line.
func Init(path string) error {
	if err := os.WriteFile(path, []byte(Header+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to initialize trace log %s: %w", path, err)
	}
	return nil
}

// Ensure initializes the log at path unless a file already exists there.
// It reports whether a new log was created.
func Ensure(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("cannot access trace log %s: %w", path, err)
	}
	if err := Init(path); err != nil {
		return false, err
	}
	return true, nil
}

// splitLines splits content on newlines, dropping the empty element that
// follows a trailing newline and any carriage returns.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
