package crudkit

import (
	"github.com/spf13/cobra"

	"github.com/railwayapp/crudkit/internal/orchestrator"
)

func newLogsCmd(s *session) *cobra.Command {
	var opts orchestrator.LogsOptions
	noFollow := false

	cmd := &cobra.Command{
		Use:   "logs [service...]",
		Short: "Stream service output until interrupted",
		Long: `Stream the combined output of all services, or only the named ones.
Interrupting with Ctrl+C ends the stream and exits successfully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := s.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			opts.Follow = !noFollow
			opts.Services = args
			return o.Logs(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.Tail, "tail", "n", 0, "number of lines to show from the end of each service's log (0 shows all)")
	cmd.Flags().BoolVar(&noFollow, "no-follow", false, "print current output and exit")
	return cmd
}
