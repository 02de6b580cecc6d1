package orchestrator

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/railwayapp/crudkit/internal/execx"
)

// Clean removes the stack's named data volumes. Volumes that do not exist
// are skipped, so cleaning an already clean host succeeds.
// It returns the runtime names of the removed volumes.
func (o *Orchestrator) Clean(ctx context.Context) ([]string, error) {
	if len(o.opts.Volumes) == 0 {
		return nil, nil
	}

	out, err := execx.Capture(ctx, o.runner, execx.Cmd{
		Name: "docker",
		Args: []string{"volume", "ls", "--quiet"},
		Env:  o.environ(),
		Dir:  o.opts.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}
	existing := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			existing[name] = true
		}
	}

	var remove []string
	for _, key := range o.opts.Volumes {
		name := o.project.VolumeName(key)
		if !existing[name] {
			log.WithField("volume", name).Debug("volume does not exist, skipping")
			continue
		}
		if vol, ok := o.project.Volumes[key]; ok && vol.External {
			log.WithField("volume", name).Warn("removing external volume")
		}
		remove = append(remove, name)
	}
	if len(remove) == 0 {
		log.Info("no volumes to remove")
		return nil, nil
	}

	args := append([]string{"volume", "rm"}, remove...)
	if err := o.run(ctx, execx.Cmd{Name: "docker", Args: args, Env: o.environ(), Dir: o.opts.Dir}); err != nil {
		return nil, err
	}
	return remove, nil
}
