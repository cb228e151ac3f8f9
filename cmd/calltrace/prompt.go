package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// errOverwriteDeclined is returned when the user keeps an existing file.
var errOverwriteDeclined = errors.New("overwrite declined")

// prompter asks yes/no questions about replacing files.
type prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func newPrompter(in io.Reader, out io.Writer, interactive bool) *prompter {
	return &prompter{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

// stdinPrompter prompts on the terminal. Without one every overwrite is
// declined, so unattended runs never replace files unless --yes is given.
func stdinPrompter() *prompter {
	return newPrompter(os.Stdin, os.Stderr, isTerminal(os.Stdin))
}

// Confirm asks whether path may be overwritten. Only "y" or "yes" accept.
func (p *prompter) Confirm(path string) bool {
	if !p.interactive {
		fmt.Fprintf(p.out, "%s already exists, keeping it (use --yes to overwrite)\n", path)
		return false
	}

	fmt.Fprintf(p.out, "%s already exists. Overwrite? [y/N] ", path)
	answer, err := p.in.ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// confirmWrite checks whether path may be written, asking when it exists.
func confirmWrite(path string, assumeYes bool) error {
	if assumeYes {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if !stdinPrompter().Confirm(path) {
		return fmt.Errorf("%s: %w", path, errOverwriteDeclined)
	}
	return nil
}
