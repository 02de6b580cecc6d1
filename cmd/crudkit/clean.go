package crudkit

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCleanCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the database data volumes",
		Long: `Remove the named data volumes (postgres_data and mysql_data by default).
Volume names are resolved through the compose file, so project prefixes and
explicit names are honoured. Volumes that do not exist are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := s.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := o.Clean(cmd.Context())
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Fprintln(s.stdout, "No volumes to remove.")
				return nil
			}
			fmt.Fprintf(s.stdout, "Removed %s\n", strings.Join(removed, ", "))
			return nil
		},
	}
}
