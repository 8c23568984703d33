// Package picker implements the interactive single-choice prompt used by the
// search and tag commands. It is presentation glue: no selection is a silent
// no-op, never an error.
package picker

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Selector presents items for single-choice selection.
type Selector interface {
	// Select returns the index of the chosen item, or -1 if the operator
	// made no selection.
	Select(items []string) (int, error)
}

// TermSelector is a Selector that prints a numbered list and reads the
// choice from an input stream.
type TermSelector struct {
	in  io.Reader
	out io.Writer
}

// NewTermSelector creates a selector bound to stdin/stdout.
func NewTermSelector() *TermSelector {
	return &TermSelector{in: os.Stdin, out: os.Stdout}
}

// Select prints the items as a numbered list and reads one choice.
// An empty line cancels and returns -1 with no error.
func (s *TermSelector) Select(items []string) (int, error) {
	if len(items) == 0 {
		return -1, nil
	}

	for i, item := range items {
		fmt.Fprintf(s.out, "[%d] %s\n", i+1, item)
	}
	fmt.Fprintf(s.out, "Select [1-%d] (empty to cancel): ", len(items))

	reader := bufio.NewReader(s.in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return -1, nil
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return -1, nil
	}

	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > len(items) {
		return -1, fmt.Errorf("invalid selection %q", line)
	}
	return choice - 1, nil
}

// Prompt prints a label and reads one line of free-text input.
func (s *TermSelector) Prompt(label string) (string, error) {
	fmt.Fprintf(s.out, "%s: ", label)
	reader := bufio.NewReader(s.in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
