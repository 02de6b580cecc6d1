// Package orchestrator turns stack lifecycle operations into docker compose
// command lines. It holds no service state of its own: the container runtime
// owns it and every operation is a single pass-through call whose failure is
// the operation's failure.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/railwayapp/crudkit/internal/environment"
	"github.com/railwayapp/crudkit/internal/execx"
	"github.com/railwayapp/crudkit/internal/stack"
)

// Options fix the parameters shared by every compose invocation.
type Options struct {
	EnvFile string
	Env     *environment.Environment
	Base    []string // parent environment, os.Environ form
	Dir     string
	Volumes []string // volume keys removed by Clean
}

// Orchestrator issues lifecycle commands for one compose project.
type Orchestrator struct {
	runner   execx.Runner
	registry *stack.Registry
	project  *stack.Project
	opts     Options
}

// New creates an Orchestrator.
func New(runner execx.Runner, registry *stack.Registry, project *stack.Project, opts Options) *Orchestrator {
	return &Orchestrator{
		runner:   runner,
		registry: registry,
		project:  project,
		opts:     opts,
	}
}

// Project returns the compose project the orchestrator drives.
func (o *Orchestrator) Project() *stack.Project { return o.project }

// Registry returns the stack's service registry.
func (o *Orchestrator) Registry() *stack.Registry { return o.registry }

// DBType is the relational variant selected by the environment.
func (o *Orchestrator) DBType() environment.DBType { return o.opts.Env.DBType() }

// Compose builds a docker compose command for this project.
func (o *Orchestrator) Compose(args ...string) execx.Cmd {
	all := []string{"compose", "-f", o.project.ComposeFile, "-p", o.project.Name}
	if o.opts.EnvFile != "" {
		all = append(all, "--env-file", o.opts.EnvFile)
	}
	all = append(all, args...)
	return execx.Cmd{
		Name: "docker",
		Args: all,
		Env:  o.environ(),
		Dir:  o.opts.Dir,
	}
}

// environ carries DB_TYPE (and every other file key) to compose, which
// interpolates it into the selected database variant.
func (o *Orchestrator) environ() []string {
	return o.opts.Env.Environ(o.opts.Base)
}

func (o *Orchestrator) run(ctx context.Context, cmd execx.Cmd) error {
	return o.runner.Run(ctx, cmd)
}

// Build rebuilds the application image without the layer cache.
func (o *Orchestrator) Build(ctx context.Context) error {
	app := o.registry.App()
	if err := o.project.Require(app.Name); err != nil {
		return err
	}
	return o.run(ctx, o.Compose("build", "--no-cache", app.Name))
}

// Up builds images if needed and starts every service in the background.
func (o *Orchestrator) Up(ctx context.Context) error {
	log.WithFields(log.Fields{"project": o.project.Name, "db_type": o.DBType()}).Info("starting services")
	return o.run(ctx, o.Compose("up", "-d", "--build"))
}

// Down stops and removes every service container.
func (o *Orchestrator) Down(ctx context.Context) error {
	log.WithField("project", o.project.Name).Info("stopping services")
	return o.run(ctx, o.Compose("down", "--remove-orphans"))
}

// Restart is Down followed by Up with the same parameters.
func (o *Orchestrator) Restart(ctx context.Context) error {
	if err := o.Down(ctx); err != nil {
		return err
	}
	return o.Up(ctx)
}

// LogsOptions select which output Logs streams.
type LogsOptions struct {
	Follow   bool
	Tail     int // lines per service; 0 means all
	Services []string
}

// Logs streams combined service output. With Follow it blocks until ctx is
// cancelled, which is treated as a clean exit.
func (o *Orchestrator) Logs(ctx context.Context, opts LogsOptions) error {
	for _, name := range opts.Services {
		if err := o.project.Require(name); err != nil {
			return err
		}
	}

	args := []string{"logs"}
	if opts.Follow {
		args = append(args, "-f")
	}
	if opts.Tail > 0 {
		args = append(args, "--tail", strconv.Itoa(opts.Tail))
	}
	args = append(args, opts.Services...)

	err := o.run(ctx, o.Compose(args...))
	if err != nil && opts.Follow && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Disable stops and removes the container of one database service, leaving
// every other service untouched.
func (o *Orchestrator) Disable(ctx context.Context, role stack.Role) error {
	if !role.IsDatabase() {
		return fmt.Errorf("%w: %q is not a database role", stack.ErrUnknownService, role)
	}
	svc, err := o.registry.Get(role)
	if err != nil {
		return err
	}
	if err := o.project.Require(svc.Name); err != nil {
		return err
	}
	log.WithField("service", svc.Name).Info("disabling service")
	return o.run(ctx, o.Compose("rm", "--stop", "--force", svc.Name))
}

// ExecOptions tune Exec.
type ExecOptions struct {
	NoTTY bool
}

// Exec runs argv inside the running service container.
func (o *Orchestrator) Exec(ctx context.Context, service string, argv []string, opts ExecOptions) error {
	if len(argv) == 0 {
		return errors.New("exec: empty command")
	}
	if err := o.project.Require(service); err != nil {
		return err
	}
	args := []string{"exec"}
	if opts.NoTTY {
		args = append(args, "-T")
	}
	args = append(args, service)
	args = append(args, argv...)
	return o.run(ctx, o.Compose(args...))
}
