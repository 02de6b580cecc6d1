package migration

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/railwayapp/crudkit/internal/orchestrator"
)

// Alembic drives alembic inside the application container.
type Alembic struct {
	exec    Executor
	service string
}

// NewAlembic returns an alembic backend running in service.
func NewAlembic(exec Executor, service string) *Alembic {
	return &Alembic{exec: exec, service: service}
}

func (a *Alembic) Revision(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	log.WithField("message", message).Info("creating revision")
	return a.alembic(ctx, "revision", "--autogenerate", "-m", message)
}

func (a *Alembic) Upgrade(ctx context.Context) error {
	log.Info("upgrading schema to head")
	return a.alembic(ctx, "upgrade", "head")
}

func (a *Alembic) Current(ctx context.Context) error {
	return a.alembic(ctx, "current")
}

func (a *Alembic) alembic(ctx context.Context, args ...string) error {
	argv := append([]string{"alembic"}, args...)
	return a.exec.Exec(ctx, a.service, argv, orchestrator.ExecOptions{NoTTY: true})
}
