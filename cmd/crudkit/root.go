package crudkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/railwayapp/crudkit/internal/config"
	"github.com/railwayapp/crudkit/internal/environment"
	"github.com/railwayapp/crudkit/internal/execx"
	"github.com/railwayapp/crudkit/internal/logger"
	"github.com/railwayapp/crudkit/internal/orchestrator"
	"github.com/railwayapp/crudkit/internal/prompt"
	"github.com/railwayapp/crudkit/internal/stack"
)

// deps are the process-level collaborators of the command tree.
type deps struct {
	stdout  io.Writer
	stderr  io.Writer
	runner  execx.Runner
	input   prompt.InputProvider // nil picks an interactive or piped prompt
	environ func() []string
	dir     string // working directory for compose lookup, empty for cwd
}

func defaultDeps() deps {
	return deps{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		runner:  execx.NewExecRunner(),
		environ: os.Environ,
	}
}

// session is the state every command shares once settings and the
// environment file have been loaded.
type session struct {
	deps

	configFile string
	settings   *config.Settings
	env        *environment.Environment
	runner     execx.Runner
	loader     *stack.Loader
}

func newRootCmd(d deps) *cobra.Command {
	s := &session{deps: d, loader: stack.NewLoader()}

	rootCmd := &cobra.Command{
		Use:   "crudkit",
		Short: "Run and maintain the CRUD application stack",
		Long: `crudkit drives the CRUD application stack: the application container,
PostgreSQL or MySQL (selected by DB_TYPE), MongoDB, schema migrations and the
test suite. Every operation becomes a docker compose command line.

The environment file (.env by default) must exist and define DB_TYPE before
any command runs.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: s.setup,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(d.stdout)
	rootCmd.SetErr(d.stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&s.configFile, "config", "", "settings file (default is ./.crudkit.yaml, then $HOME/.crudkit.yaml)")
	pf.String("env-file", config.DefaultEnvFile, "environment file")
	pf.String("compose-file", "", "compose file (default is compose.yaml or docker-compose.yml in the working directory)")
	pf.Bool("dry-run", false, "print command lines instead of running them")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newBuildCmd(s),
		newUpCmd(s),
		newDownCmd(s),
		newRestartCmd(s),
		newLogsCmd(s),
		newCleanCmd(s),
		newStatusCmd(s),
		newRevisionCmd(s),
		newUpgradeCmd(s),
		newCurrentCmd(s),
		newTestCmd(s),
		newEnvCmd(s),
		newConfigCmd(s),
	)
	rootCmd.AddCommand(newDisableCmds(s)...)
	return rootCmd
}

var flagKeys = map[string]string{
	"env-file":     "env_file",
	"compose-file": "compose_file",
	"dry-run":      "dry_run",
	"log-level":    "log.level",
}

// setup loads settings and the environment file. It runs before every
// command, so a missing or invalid environment file stops the command
// before anything external is invoked.
func (s *session) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" {
		return nil
	}

	v, err := config.New(s.configFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Root()); err != nil {
		return err
	}
	settings, err := config.Load(v)
	if err != nil {
		return err
	}
	logger.Init(s.stderr, logger.Config{Level: settings.Log.Level, Format: settings.Log.Format})
	if used := config.ConfigFileUsed(v); used != "" {
		log.WithField("file", used).Debug("using settings file")
	}

	env, err := environment.Load(settings.EnvFile)
	if err != nil {
		return err
	}
	if err := env.Validate(settings.Env.Required...); err != nil {
		return err
	}
	logger.Command(cmd.Name()).WithFields(log.Fields{
		"file":    env.Path(),
		"keys":    env.Len(),
		"db_type": env.DBType(),
	}).Debug("loaded environment")

	s.settings = settings
	s.env = env
	s.runner = s.deps.runner
	if settings.DryRun {
		s.runner = execx.NewDryRunner(s.stdout)
	}
	return nil
}

func bindFlags(v *viper.Viper, root *cobra.Command) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, root.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	return nil
}

func (s *session) baseEnviron() []string {
	if s.environ == nil {
		return nil
	}
	return s.environ()
}

// orchestrator loads the compose project and returns an orchestrator for it.
func (s *session) orchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	base := s.baseEnviron()
	project, err := s.loader.Load(ctx, stack.LoadOptions{
		ComposeFile: s.settings.ComposeFile,
		WorkingDir:  s.dir,
		ProjectName: s.settings.Project,
		Environ:     s.env.Environ(base),
	})
	if err != nil {
		return nil, err
	}
	return orchestrator.New(s.runner, stack.NewRegistry(s.settings.Services), project, orchestrator.Options{
		EnvFile: s.settings.EnvFile,
		Env:     s.env,
		Base:    base,
		Dir:     s.dir,
		Volumes: s.settings.Volumes,
	}), nil
}

func (s *session) prompt() prompt.InputProvider {
	if s.input != nil {
		return s.input
	}
	return prompt.Default(os.Stdin, os.Stderr)
}

// Execute runs the command tree and exits with the status of the failed
// operation, passing external tools' exit codes through unchanged.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(defaultDeps()).ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	if prompt.IsAborted(err) {
		fmt.Fprintln(os.Stderr, "Aborted.")
	} else if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(execx.ExitCode(err))
}
