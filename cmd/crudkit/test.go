package crudkit

import (
	"github.com/spf13/cobra"

	"github.com/railwayapp/crudkit/internal/testrunner"
)

func newTestCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "test [-- args...]",
		Short: "Run the test suite inside the application container",
		Long: `Run the test suite inside the running application container. Arguments
after -- are passed to the test command. The test command's exit code is
returned unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := s.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			runner := testrunner.New(o, o.Registry().App().Name, s.settings.Test, o.Project().WorkingDir)
			return runner.Run(cmd.Context(), args)
		},
	}
}
