package crudkit

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/railwayapp/crudkit/internal/migration"
)

// migrations returns the configured migration backend. Only the alembic
// backend needs the compose project.
func (s *session) migrations(ctx context.Context) (migration.Runner, error) {
	opts := migration.Options{
		Settings: s.settings.Migrations,
		Env:      s.env,
		App:      s.settings.Services.App,
		Out:      s.stdout,
	}
	if s.settings.Migrations.Backend != migration.BackendSQL {
		o, err := s.orchestrator(ctx)
		if err != nil {
			return nil, err
		}
		opts.Exec = o
	}
	return migration.New(opts)
}

func newRevisionCmd(s *session) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "revision",
		Short: "Create a new migration revision",
		Long: `Create a new migration revision. The message is taken from --message or
asked for interactively. Creating a revision applies nothing; run upgrade
to change the schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := s.migrations(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := migration.Message(message, s.prompt())
			if err != nil {
				return err
			}
			return runner.Revision(cmd.Context(), msg)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "revision message")
	return cmd
}

func newUpgradeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Apply every pending migration revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := s.migrations(cmd.Context())
			if err != nil {
				return err
			}
			return runner.Upgrade(cmd.Context())
		},
	}
}

func newCurrentCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the applied migration revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := s.migrations(cmd.Context())
			if err != nil {
				return err
			}
			return runner.Current(cmd.Context())
		},
	}
}
