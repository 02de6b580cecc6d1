// Package prompt collects free-text answers from the operator, either
// interactively on a terminal or from piped input.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C or end of input).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// InputProvider asks for a single line of text.
type InputProvider interface {
	Text(label string) (string, error)
}

// Literal answers every prompt with a fixed value.
type Literal string

func (l Literal) Text(string) (string, error) {
	return string(l), nil
}

// Interactive prompts on a terminal with promptui.
type Interactive struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

func (p Interactive) Text(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:  label,
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("must not be empty")
			}
			return nil
		},
	}

	result, err := prompt.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// LineReader reads answers line by line from non-interactive input.
type LineReader struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineReader returns a LineReader reading from in. Labels are written to
// out when it is non-nil.
func NewLineReader(in io.Reader, out io.Writer) *LineReader {
	return &LineReader{in: bufio.NewReader(in), out: out}
}

func (r *LineReader) Text(label string) (string, error) {
	if r.out != nil {
		_, _ = fmt.Fprintf(r.out, "%s: ", label)
	}
	line, err := r.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", ErrAborted
	}
	return strings.TrimSpace(line), nil
}

// Default picks the interactive prompt when stdin is a terminal and falls
// back to a line reader for piped input.
func Default(stdin *os.File, stdout *os.File) InputProvider {
	if term.IsTerminal(int(stdin.Fd())) {
		return Interactive{Stdin: stdin, Stdout: stdout}
	}
	return NewLineReader(stdin, stdout)
}
