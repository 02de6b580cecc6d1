package execx

import (
	"context"
	"io"
	"sync"
)

// Recorder is a Runner that remembers every command it is asked to run.
// Respond, when set, produces the command's stdout and result.
type Recorder struct {
	mu       sync.Mutex
	commands []Cmd

	Respond func(cmd Cmd) (stdout string, err error)
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Run(_ context.Context, cmd Cmd) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	respond := r.Respond
	r.mu.Unlock()

	if respond == nil {
		return nil
	}
	out, err := respond(cmd)
	if out != "" && cmd.Stdout != nil {
		if _, werr := io.WriteString(cmd.Stdout, out); werr != nil {
			return werr
		}
	}
	return err
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Cmd(nil), r.commands...)
}

// Lines returns the recorded commands rendered as strings.
func (r *Recorder) Lines() []string {
	cmds := r.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}

// Reset forgets recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}
