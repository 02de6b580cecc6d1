package crudkit

import (
	"github.com/spf13/cobra"

	"github.com/railwayapp/crudkit/internal/orchestrator"
	"github.com/railwayapp/crudkit/internal/output"
)

func newStatusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the container state of every service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := s.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			statuses, err := o.Status(cmd.Context())
			if err != nil {
				return err
			}

			styles := output.NewStyles(output.IsTerminal(s.stdout))
			table := output.NewTable("Service", "Role", "State", "Container", "Status")
			for _, st := range statuses {
				state := styles.Stopped.Render(string(st.State))
				switch {
				case !st.Defined:
					state = styles.Missing.Render("not defined")
				case st.State == orchestrator.StateRunning:
					state = styles.Running.Render(string(st.State))
				}
				table.AddRow(st.Service.Name, string(st.Service.Role), state, st.Container, st.Detail)
			}
			return output.PrintTable(s.stdout, table)
		},
	}
}
