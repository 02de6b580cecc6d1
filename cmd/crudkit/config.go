package crudkit

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/railwayapp/crudkit/internal/config"
	"github.com/railwayapp/crudkit/internal/orchestrator"
	"github.com/railwayapp/crudkit/internal/output"
	"github.com/railwayapp/crudkit/internal/stack"
)

type stackView struct {
	Project     string                   `yaml:"project"`
	ComposeFile string                   `yaml:"compose_file"`
	EnvFile     string                   `yaml:"env_file"`
	DBType      string                   `yaml:"db_type"`
	Migrations  config.MigrationSettings `yaml:"migrations"`
	Services    []serviceView            `yaml:"services"`
	Volumes     []stack.Volume           `yaml:"volumes"`
}

type serviceView struct {
	Role       stack.Role        `yaml:"role"`
	Name       string            `yaml:"name"`
	Defined    bool              `yaml:"defined"`
	Selected   bool              `yaml:"selected,omitempty"` // relational database chosen by DB_TYPE
	Image      string            `yaml:"image,omitempty"`
	Build      string            `yaml:"build,omitempty"`
	Ports      []string          `yaml:"ports,omitempty"`
	DependsOn  []string          `yaml:"depends_on,omitempty"`
	Dockerfile *stack.Dockerfile `yaml:"dockerfile,omitempty"`
}

func newStackView(o *orchestrator.Orchestrator, s *session) stackView {
	p := o.Project()
	view := stackView{
		Project:     p.Name,
		ComposeFile: p.ComposeFile,
		EnvFile:     s.settings.EnvFile,
		DBType:      string(o.DBType()),
		Migrations:  s.settings.Migrations,
	}

	selected, _ := o.Registry().Relational(o.DBType())
	for _, svc := range o.Registry().All() {
		sv := serviceView{Role: svc.Role, Name: svc.Name, Selected: svc.Role == selected.Role}
		if cs, ok := p.Services[svc.Name]; ok {
			sv.Defined = true
			sv.Image = cs.Image
			sv.Build = cs.BuildContext
			sv.Ports = cs.Ports
			sv.DependsOn = cs.DependsOn
			if cs.BuildsFromSource() && cs.Dockerfile != "" {
				if d, err := stack.InspectDockerfile(cs.Dockerfile); err != nil {
					log.WithError(err).WithField("service", svc.Name).Warn("cannot inspect Dockerfile")
				} else {
					sv.Dockerfile = d
				}
			}
		}
		view.Services = append(view.Services, sv)
	}

	for _, key := range s.settings.Volumes {
		vol, ok := p.Volumes[key]
		if !ok {
			vol = stack.Volume{Key: key, Name: p.VolumeName(key)}
		}
		view.Volumes = append(view.Volumes, vol)
	}
	return view
}

func newConfigCmd(s *session) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved stack",
		Long: `Show the resolved stack: compose project, services and their roles,
image or build context, Dockerfile stages and the data volumes clean removes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			o, err := s.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			view := newStackView(o, s)
			if f == output.FormatYAML {
				return output.PrintYAML(s.stdout, view)
			}
			return printStackView(s, view)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "table", "output format (table, yaml)")
	return cmd
}

func printStackView(s *session, view stackView) error {
	fmt.Fprintf(s.stdout, "Project:      %s\n", view.Project)
	fmt.Fprintf(s.stdout, "Compose file: %s\n", view.ComposeFile)
	fmt.Fprintf(s.stdout, "Env file:     %s (DB_TYPE=%s)\n", view.EnvFile, view.DBType)
	fmt.Fprintf(s.stdout, "Migrations:   %s\n\n", view.Migrations.Backend)

	services := output.NewTable("Service", "Role", "Source", "Base", "Ports")
	for _, sv := range view.Services {
		source := sv.Image
		if sv.Build != "" {
			source = "build " + sv.Build
		}
		if !sv.Defined {
			source = "(not defined)"
		}
		base := ""
		if sv.Dockerfile != nil {
			base = sv.Dockerfile.FinalBase()
		}
		role := string(sv.Role)
		if sv.Selected {
			role += " (DB_TYPE)"
		}
		services.AddRow(sv.Name, role, source, base, strings.Join(sv.Ports, ", "))
	}
	if err := output.PrintTable(s.stdout, services); err != nil {
		return err
	}

	fmt.Fprintln(s.stdout)
	volumes := output.NewTable("Volume", "Name", "External")
	for _, v := range view.Volumes {
		volumes.AddRow(v.Key, v.Name, fmt.Sprint(v.External))
	}
	return output.PrintTable(s.stdout, volumes)
}
