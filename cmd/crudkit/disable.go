package crudkit

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/railwayapp/crudkit/internal/stack"
)

// newDisableCmds returns disable-postgres, disable-mysql and disable-mongo.
func newDisableCmds(s *session) []*cobra.Command {
	var cmds []*cobra.Command
	for _, role := range stack.Roles {
		if !role.IsDatabase() {
			continue
		}
		cmds = append(cmds, &cobra.Command{
			Use:   "disable-" + string(role),
			Short: fmt.Sprintf("Stop and remove the %s container, leaving other services running", role.Description()),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				o, err := s.orchestrator(cmd.Context())
				if err != nil {
					return err
				}
				return o.Disable(cmd.Context(), role)
			},
		})
	}
	return cmds
}
