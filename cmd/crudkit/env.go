package crudkit

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/railwayapp/crudkit/internal/environment"
	"github.com/railwayapp/crudkit/internal/output"
)

func newEnvCmd(s *session) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "env",
		Short: "List the variables of the environment file",
		Long: `List the variables of the environment file with their kind. Secrets and
database credentials are masked.

With --check, scan the compose file and the application sources for
variables they read and fail if any of them is missing from the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if check {
				return checkEnv(cmd, s)
			}
			table := output.NewTable("Key", "Kind", "Value")
			for _, key := range s.env.Keys() {
				value := s.env.Get(key)
				kind, sensitive := environment.Classify(key, value)
				if sensitive {
					value = environment.Mask(value)
				}
				table.AddRow(key, kind.String(), value)
			}
			return output.PrintTable(s.stdout, table)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "report variables the stack reads but the environment file does not set")
	return cmd
}

func checkEnv(cmd *cobra.Command, s *session) error {
	o, err := s.orchestrator(cmd.Context())
	if err != nil {
		return err
	}
	refs, err := environment.ScanReferences(cmd.Context(), o.Project().WorkingDir)
	if err != nil {
		return err
	}
	missing := s.env.Unset(refs)
	if len(missing) == 0 {
		fmt.Fprintf(s.stdout, "All %d referenced variables are set.\n", len(refs))
		return nil
	}

	table := output.NewTable("Key", "Read by")
	for _, ref := range missing {
		table.AddRow(ref.Key, ref.Source)
	}
	if err := output.PrintTable(s.stdout, table); err != nil {
		return err
	}
	return fmt.Errorf("%d referenced variables are not set in %s", len(missing), s.env.Path())
}
