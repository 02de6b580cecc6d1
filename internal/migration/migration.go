// Package migration creates and applies schema revisions for the active
// relational database. Two backends exist: alembic, run inside the
// application container, and plain SQL files applied with golang-migrate.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/railwayapp/crudkit/internal/config"
	"github.com/railwayapp/crudkit/internal/environment"
	"github.com/railwayapp/crudkit/internal/orchestrator"
	"github.com/railwayapp/crudkit/internal/prompt"
)

// ErrEmptyMessage is returned when a revision is requested without a message.
var ErrEmptyMessage = errors.New("revision message must not be empty")

const (
	BackendAlembic = "alembic"
	BackendSQL     = "sql"
)

// Runner creates and applies revisions. Revision never touches schema
// state; Upgrade is the only operation that does.
type Runner interface {
	Revision(ctx context.Context, message string) error
	Upgrade(ctx context.Context) error
	Current(ctx context.Context) error
}

// Executor runs a command inside a stack service.
type Executor interface {
	Exec(ctx context.Context, service string, argv []string, opts orchestrator.ExecOptions) error
}

// Options wire a backend to the stack.
type Options struct {
	Settings config.MigrationSettings
	Env      *environment.Environment
	Exec     Executor
	App      string    // service that runs alembic
	Out      io.Writer // progress output of the sql backend
}

// New returns the backend selected by opts.Settings.Backend.
func New(opts Options) (Runner, error) {
	switch strings.ToLower(opts.Settings.Backend) {
	case BackendAlembic, "":
		return NewAlembic(opts.Exec, opts.App), nil
	case BackendSQL:
		return NewSQL(SQLOptions{
			Dir:   opts.Settings.Dir,
			Table: opts.Settings.Table,
			Env:   opts.Env,
			Out:   opts.Out,
		}), nil
	default:
		return nil, fmt.Errorf("unknown migration backend %q", opts.Settings.Backend)
	}
}

// Message obtains a revision message: the literal one when given, otherwise
// whatever input answers.
func Message(literal string, input prompt.InputProvider) (string, error) {
	msg := strings.TrimSpace(literal)
	if msg == "" && input != nil {
		answer, err := input.Text("Revision message")
		if err != nil {
			return "", err
		}
		msg = strings.TrimSpace(answer)
	}
	if msg == "" {
		return "", ErrEmptyMessage
	}
	return msg, nil
}
