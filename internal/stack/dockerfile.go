package stack

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// Dockerfile summarizes the build recipe of a service.
type Dockerfile struct {
	Path    string   `yaml:"path"`
	Stages  []Stage  `yaml:"stages"`
	EnvKeys []string `yaml:"env,omitempty"`
	Expose  []string `yaml:"expose,omitempty"`
}

// Stage is one FROM instruction.
type Stage struct {
	Name string `yaml:"name,omitempty"`
	Base string `yaml:"base"`
}

// FinalBase is the base image of the last stage.
func (d *Dockerfile) FinalBase() string {
	if len(d.Stages) == 0 {
		return ""
	}
	return d.Stages[len(d.Stages)-1].Base
}

// InspectDockerfile parses the Dockerfile at path.
func InspectDockerfile(path string) (*Dockerfile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read Dockerfile: %w", err)
	}
	d, err := ParseDockerfile(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	d.Path = path
	return d, nil
}

// ParseDockerfile parses Dockerfile content.
func ParseDockerfile(content []byte) (*Dockerfile, error) {
	result, err := parser.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	d := &Dockerfile{}
	seenEnv := make(map[string]bool)
	for _, child := range result.AST.Children {
		switch strings.ToLower(child.Value) {
		case "from":
			d.Stages = append(d.Stages, parseFrom(child))
		case "env":
			for _, key := range envKeys(child) {
				if !seenEnv[key] {
					seenEnv[key] = true
					d.EnvKeys = append(d.EnvKeys, key)
				}
			}
		case "expose":
			for n := child.Next; n != nil; n = n.Next {
				d.Expose = append(d.Expose, n.Value)
			}
		}
	}
	return d, nil
}

func parseFrom(node *parser.Node) Stage {
	var args []string
	for n := node.Next; n != nil; n = n.Next {
		args = append(args, n.Value)
	}
	stage := Stage{}
	if len(args) > 0 {
		stage.Base = args[0]
	}
	if len(args) >= 3 && strings.EqualFold(args[1], "as") {
		stage.Name = args[2]
	}
	return stage
}

// envKeys walks the key/value node chain of an ENV instruction. Some parser
// versions insert an "=" node after each value.
func envKeys(node *parser.Node) []string {
	var keys []string
	n := node.Next
	for n != nil {
		key := n.Value
		if k, _, ok := strings.Cut(key, "="); ok {
			key = k
		}
		keys = append(keys, key)

		n = n.Next // value
		if n != nil {
			n = n.Next
		}
		if n != nil && n.Value == "=" {
			n = n.Next
		}
	}
	return keys
}
