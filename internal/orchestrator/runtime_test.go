package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/railwayapp/crudkit/internal/execx"
	"github.com/railwayapp/crudkit/internal/stack"
)

// fakeRuntime emulates the parts of docker and docker compose the
// orchestrator drives, keeping container and volume state in memory.
type fakeRuntime struct {
	mu       sync.Mutex
	project  *stack.Project
	running  map[string]bool
	volumes  map[string]bool
	commands []string
}

func newFakeRuntime(project *stack.Project) *fakeRuntime {
	return &fakeRuntime{
		project: project,
		running: make(map[string]bool),
		volumes: make(map[string]bool),
	}
}

func (f *fakeRuntime) Run(_ context.Context, cmd execx.Cmd) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd.String())

	if cmd.Name != "docker" || len(cmd.Args) == 0 {
		return &execx.ExitError{Cmd: cmd.String(), Code: 127}
	}
	switch cmd.Args[0] {
	case "compose":
		return f.compose(cmd, stripGlobalFlags(cmd.Args[1:]))
	case "volume":
		return f.volume(cmd, cmd.Args[1:])
	}
	return &execx.ExitError{Cmd: cmd.String(), Code: 1}
}

func stripGlobalFlags(args []string) []string {
	for len(args) >= 2 {
		switch args[0] {
		case "-f", "-p", "--env-file":
			args = args[2:]
		default:
			return args
		}
	}
	return args
}

func (f *fakeRuntime) compose(cmd execx.Cmd, args []string) error {
	switch args[0] {
	case "up":
		for name, svc := range f.project.Services {
			f.running[name] = true
			for _, key := range svc.Volumes {
				f.volumes[f.project.VolumeName(key)] = true
			}
		}
	case "down":
		f.running = make(map[string]bool)
	case "rm":
		for _, a := range args[1:] {
			if !strings.HasPrefix(a, "-") {
				delete(f.running, a)
			}
		}
	case "ps":
		var lines []string
		for _, name := range f.sortedRunning() {
			b, _ := json.Marshal(psEntry{Name: "crudstack-" + name + "-1", Service: name, State: "running", Status: "Up 1 second"})
			lines = append(lines, string(b))
		}
		return f.write(cmd, strings.Join(lines, "\n"))
	case "exec":
		svc := args[1]
		if svc == "-T" {
			svc = args[2]
		}
		if !f.running[svc] {
			return &execx.ExitError{Cmd: cmd.String(), Code: 1}
		}
	case "build", "logs":
	default:
		return &execx.ExitError{Cmd: cmd.String(), Code: 1}
	}
	return nil
}

func (f *fakeRuntime) volume(cmd execx.Cmd, args []string) error {
	switch args[0] {
	case "ls":
		var names []string
		for name := range f.volumes {
			names = append(names, name)
		}
		sort.Strings(names)
		return f.write(cmd, strings.Join(names, "\n"))
	case "rm":
		for _, name := range args[1:] {
			if !f.volumes[name] {
				return &execx.ExitError{Cmd: cmd.String(), Code: 1, Err: fmt.Errorf("no such volume: %s", name)}
			}
		}
		for _, name := range args[1:] {
			delete(f.volumes, name)
		}
	}
	return nil
}

func (f *fakeRuntime) write(cmd execx.Cmd, s string) error {
	if cmd.Stdout == nil || s == "" {
		return nil
	}
	_, err := io.WriteString(cmd.Stdout, s+"\n")
	return err
}

func (f *fakeRuntime) sortedRunning() []string {
	var names []string
	for name, up := range f.running {
		if up {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (f *fakeRuntime) isRunning(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[name]
}

func (f *fakeRuntime) runningCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sortedRunning())
}
