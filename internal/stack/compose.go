package stack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/types"
	"golang.org/x/sync/singleflight"
)

// Project is the subset of a compose project crudkit needs.
type Project struct {
	Name        string
	ComposeFile string
	WorkingDir  string
	Services    map[string]ComposeService
	Volumes     map[string]Volume
}

// ComposeService is a service as declared in the compose file.
type ComposeService struct {
	Name         string   `yaml:"name"`
	Image        string   `yaml:"image,omitempty"`
	BuildContext string   `yaml:"build_context,omitempty"`
	Dockerfile   string   `yaml:"dockerfile,omitempty"`
	Ports        []string `yaml:"ports,omitempty"`
	DependsOn    []string `yaml:"depends_on,omitempty"`
	Volumes      []string `yaml:"volumes,omitempty"`
}

// BuildsFromSource reports whether the service has a build section.
func (s ComposeService) BuildsFromSource() bool { return s.BuildContext != "" }

// Volume is a top-level named volume.
type Volume struct {
	Key      string `yaml:"key"`      // name in the compose file
	Name     string `yaml:"name"`     // name in the container runtime
	External bool   `yaml:"external"` // not created or removed by compose
}

// ServiceNames returns the compose service names in sorted order.
func (p *Project) ServiceNames() []string {
	names := make([]string, 0, len(p.Services))
	for name := range p.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the compose file defines service.
func (p *Project) Has(service string) bool {
	_, ok := p.Services[service]
	return ok
}

// Require returns an error wrapping ErrUnknownService when service is not defined.
func (p *Project) Require(service string) error {
	if p.Has(service) {
		return nil
	}
	return fmt.Errorf("%w: %q is not defined in %s (services: %s)",
		ErrUnknownService, service, p.ComposeFile, strings.Join(p.ServiceNames(), ", "))
}

// VolumeName resolves a volume key (e.g. postgres_data) to its runtime name.
// Keys the compose file does not declare resolve to themselves.
func (p *Project) VolumeName(key string) string {
	if v, ok := p.Volumes[key]; ok && v.Name != "" {
		return v.Name
	}
	return key
}

// LoadOptions identify the compose project to load.
type LoadOptions struct {
	ComposeFile string   // empty means look up a default file in WorkingDir
	WorkingDir  string   // defaults to the current directory
	ProjectName string   // explicit project name; empty lets compose decide
	Environ     []string // interpolation environment, os.Environ form
}

// Loader loads compose projects. Concurrent loads of the same file share one
// parse and results are cached for the Loader's lifetime.
type Loader struct {
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*Project
}

// NewLoader returns an empty Loader.
func NewLoader() *Loader {
	return &Loader{cache: make(map[string]*Project)}
}

// Load parses the compose file described by opts.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) (*Project, error) {
	path, workDir, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}
	key := path + "\x00" + opts.ProjectName

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		l.mu.Lock()
		cached, ok := l.cache[key]
		l.mu.Unlock()
		if ok {
			return cached, nil
		}

		p, err := loadProject(ctx, path, workDir, opts)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.cache[key] = p
		l.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Project), nil
}

func resolvePaths(opts LoadOptions) (string, string, error) {
	workDir := opts.WorkingDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		workDir = wd
	}

	path := opts.ComposeFile
	if path == "" {
		found, err := FindComposeFile(workDir)
		if err != nil {
			return "", "", fmt.Errorf("no compose file found in %s (looked for %s)", workDir, strings.Join(composeFileNames, ", "))
		}
		path = found
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("compose file %s does not exist", path)
		}
		return "", "", err
	}
	return path, filepath.Dir(path), nil
}

func loadProject(ctx context.Context, path, workDir string, opts LoadOptions) (*Project, error) {
	optFns := []cli.ProjectOptionsFn{
		cli.WithWorkingDirectory(workDir),
		cli.WithEnv(opts.Environ),
		cli.WithResolvedPaths(true),
	}
	if opts.ProjectName != "" {
		optFns = append(optFns, cli.WithName(opts.ProjectName))
	}

	options, err := cli.NewProjectOptions([]string{path}, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to create project options: %w", err)
	}

	project, err := options.LoadProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load compose project %s: %w", path, err)
	}

	return convertProject(project, path), nil
}

func convertProject(project *types.Project, path string) *Project {
	p := &Project{
		Name:        project.Name,
		ComposeFile: path,
		WorkingDir:  project.WorkingDir,
		Services:    make(map[string]ComposeService, len(project.Services)),
		Volumes:     make(map[string]Volume, len(project.Volumes)),
	}

	for name, svc := range project.Services {
		p.Services[name] = convertService(name, svc)
	}

	for key, vol := range project.Volumes {
		v := Volume{Key: key, Name: vol.Name, External: bool(vol.External)}
		if v.Name == "" {
			if v.External {
				v.Name = key
			} else {
				v.Name = project.Name + "_" + key
			}
		}
		p.Volumes[key] = v
	}
	return p
}

func convertService(name string, svc types.ServiceConfig) ComposeService {
	out := ComposeService{Name: name, Image: svc.Image}

	if svc.Build != nil {
		out.BuildContext = svc.Build.Context
		if out.BuildContext == "" {
			out.BuildContext = "."
		}
		out.Dockerfile = svc.Build.Dockerfile
		if out.Dockerfile == "" {
			out.Dockerfile = "Dockerfile"
		}
		if !filepath.IsAbs(out.Dockerfile) {
			out.Dockerfile = filepath.Join(out.BuildContext, out.Dockerfile)
		}
	}

	for _, port := range svc.Ports {
		target := strconv.FormatUint(uint64(port.Target), 10)
		if port.Published == "" {
			out.Ports = append(out.Ports, target)
			continue
		}
		out.Ports = append(out.Ports, port.Published+":"+target)
	}

	for dep := range svc.DependsOn {
		out.DependsOn = append(out.DependsOn, dep)
	}
	sort.Strings(out.DependsOn)

	for _, vol := range svc.Volumes {
		if vol.Type == types.VolumeTypeVolume && vol.Source != "" {
			out.Volumes = append(out.Volumes, vol.Source)
		}
	}
	return out
}
