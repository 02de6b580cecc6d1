// Package testrunner runs the application's test suite inside its running
// container.
package testrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/railwayapp/crudkit/internal/config"
	"github.com/railwayapp/crudkit/internal/orchestrator"
)

// DefaultCommand runs when neither settings nor pyproject.toml say otherwise.
const DefaultCommand = "pytest"

// Executor runs a command inside a stack service.
type Executor interface {
	Exec(ctx context.Context, service string, argv []string, opts orchestrator.ExecOptions) error
}

// Runner runs the test suite.
type Runner struct {
	exec       Executor
	service    string
	settings   config.TestSettings
	projectDir string
}

// New returns a Runner that executes tests in service. projectDir is where
// pyproject.toml is looked up.
func New(exec Executor, service string, settings config.TestSettings, projectDir string) *Runner {
	return &Runner{exec: exec, service: service, settings: settings, projectDir: projectDir}
}

// Argv is the command line run inside the container. Configured pytest
// testpaths are added only when no extra arguments narrow the run.
func (r *Runner) Argv(extra []string) ([]string, error) {
	argv, err := r.settings.TestArgv()
	if err != nil {
		return nil, err
	}
	if argv != nil {
		return append(argv, extra...), nil
	}

	argv = []string{DefaultCommand}
	if len(extra) > 0 {
		return append(argv, extra...), nil
	}
	paths, err := pytestPaths(filepath.Join(r.projectDir, "pyproject.toml"))
	if err != nil {
		return nil, err
	}
	return append(argv, paths...), nil
}

// Run executes the suite. A failing suite surfaces as an execx.ExitError
// carrying the runner's exit code.
func (r *Runner) Run(ctx context.Context, extra []string) error {
	argv, err := r.Argv(extra)
	if err != nil {
		return err
	}
	log.WithField("service", r.service).Infof("running %s", argv[0])
	return r.exec.Exec(ctx, r.service, argv, orchestrator.ExecOptions{NoTTY: true})
}

type pyproject struct {
	Tool struct {
		Pytest struct {
			IniOptions struct {
				Testpaths []string `toml:"testpaths"`
			} `toml:"ini_options"`
		} `toml:"pytest"`
	} `toml:"tool"`
}

func pytestPaths(path string) ([]string, error) {
	var p pyproject
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return p.Tool.Pytest.IniOptions.Testpaths, nil
}
