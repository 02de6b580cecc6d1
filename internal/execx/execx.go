// Package execx runs external programs (docker, docker compose) on behalf of
// crudkit commands. All side effects of the tool go through a Runner so the
// command lines can be recorded, printed or executed.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Cmd describes a single external invocation.
type Cmd struct {
	Name string
	Args []string

	// Env is the complete child environment. Nil inherits the parent's.
	Env []string
	Dir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Argv returns the full argument vector including the program name.
func (c Cmd) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

func (c Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, a := range c.Argv() {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"$`\\|&;<>()*?") {
		return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
	}
	return s
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) error
}

// ExitError reports a command that ran and exited non-zero, or could not be
// started at all (Code 127).
type ExitError struct {
	Cmd  string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Cmd, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by a Runner to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 124
	}
	return 1
}

// ExecRunner runs commands with os/exec, streaming to the host's stdio unless
// the Cmd overrides it.
type ExecRunner struct{}

// NewExecRunner returns a Runner that executes real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, c Cmd) error {
	log.Debugf("+ %s", c)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	cmd.Stdin = orReader(c.Stdin, os.Stdin)
	cmd.Stdout = orWriter(c.Stdout, os.Stdout)
	cmd.Stderr = orWriter(c.Stderr, os.Stderr)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", c, ctxErr)
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Cmd: c.String(), Code: ee.ExitCode(), Err: err}
	}
	return &ExitError{Cmd: c.String(), Code: 127, Err: err}
}

// DryRunner prints each command line instead of running it.
type DryRunner struct {
	Out io.Writer
}

// NewDryRunner returns a Runner that writes "+ cmd" lines to out.
func NewDryRunner(out io.Writer) *DryRunner {
	return &DryRunner{Out: out}
}

func (r *DryRunner) Run(_ context.Context, c Cmd) error {
	_, err := fmt.Fprintf(r.Out, "+ %s\n", c)
	return err
}

// Capture runs cmd through r and returns what it wrote to stdout.
// Stderr is still forwarded to the host unless cmd sets it.
func Capture(ctx context.Context, r Runner, cmd Cmd) (string, error) {
	var buf bytes.Buffer
	cmd.Stdout = &buf
	if cmd.Stdin == nil {
		cmd.Stdin = strings.NewReader("")
	}
	err := r.Run(ctx, cmd)
	return buf.String(), err
}

func orReader(r, def io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return def
}

func orWriter(w, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}
