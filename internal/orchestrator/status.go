package orchestrator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/railwayapp/crudkit/internal/execx"
	"github.com/railwayapp/crudkit/internal/stack"
)

// State is the coarse lifecycle state of a service.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// ServiceStatus is a service of the stack and what the runtime reports for it.
type ServiceStatus struct {
	Service   stack.Service
	Defined   bool   // declared in the compose file
	State     State  // running or stopped
	Container string // container name, empty when none exists
	Detail    string // runtime status text, e.g. "Up 3 minutes (healthy)"
}

// psEntry is one container from `docker compose ps --format json`.
type psEntry struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Status  string `json:"Status"`
}

// Status asks the runtime for the state of every stack service.
func (o *Orchestrator) Status(ctx context.Context) ([]ServiceStatus, error) {
	cmd := o.Compose("ps", "--all", "--format", "json")
	out, err := execx.Capture(ctx, o.runner, cmd)
	if err != nil {
		return nil, err
	}
	entries, err := parsePS([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q output: %w", "docker compose ps", err)
	}

	byService := make(map[string]psEntry, len(entries))
	for _, e := range entries {
		if prev, ok := byService[e.Service]; ok && prev.State == "running" {
			continue
		}
		byService[e.Service] = e
	}

	statuses := make([]ServiceStatus, 0, len(o.registry.All()))
	for _, svc := range o.registry.All() {
		st := ServiceStatus{Service: svc, Defined: o.project.Has(svc.Name), State: StateStopped}
		if e, ok := byService[svc.Name]; ok {
			st.Container = e.Name
			st.Detail = e.Status
			if strings.EqualFold(e.State, "running") {
				st.State = StateRunning
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// parsePS accepts both the JSON array printed by older compose releases and
// the one-object-per-line format of newer ones.
func parsePS(out []byte) ([]psEntry, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	if out[0] == '[' {
		var entries []psEntry
		if err := json.Unmarshal(out, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var entries []psEntry
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e psEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
