package crudkit

import (
	"github.com/spf13/cobra"
)

func newBuildCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the application image without cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := s.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			return o.Build(cmd.Context())
		},
	}
}

func newUpCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Build if needed and start every service in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := s.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			return o.Up(cmd.Context())
		},
	}
}

func newDownCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop and remove every service container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := s.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			return o.Down(cmd.Context())
		},
	}
}

func newRestartCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Run down, then up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := s.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			return o.Restart(cmd.Context())
		},
	}
}
