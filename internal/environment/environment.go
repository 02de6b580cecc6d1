// Package environment loads the stack's environment file (.env) into an
// explicit value that is handed to every command. The process environment is
// never modified; child processes get the file's values overlaid on top of
// the parent environment.
package environment

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingEnvFile is returned by Load when the environment file does not exist.
var ErrMissingEnvFile = errors.New("environment file not found")

// KeyDBType selects the active relational database.
const KeyDBType = "DB_TYPE"

// Environment is the parsed content of an environment file.
type Environment struct {
	path   string
	values map[string]string
	keys   []string
}

// Load reads and parses the environment file at path.
func Load(path string) (*Environment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingEnvFile, path)
		}
		return nil, fmt.Errorf("failed to read environment file %s: %w", path, err)
	}

	env, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment file %s: %w", path, err)
	}
	env.path = path
	return env, nil
}

// Parse parses KEY=VALUE content in dotenv syntax.
func Parse(content []byte) (*Environment, error) {
	values, err := godotenv.Unmarshal(string(content))
	if err != nil {
		return nil, err
	}
	return FromMap(values), nil
}

// FromMap builds an Environment from literal values.
func FromMap(values map[string]string) *Environment {
	env := &Environment{values: make(map[string]string, len(values))}
	for k, v := range values {
		env.values[k] = v
		env.keys = append(env.keys, k)
	}
	sort.Strings(env.keys)
	return env
}

// Path is the file the environment was loaded from, empty for literal values.
func (e *Environment) Path() string { return e.path }

// Keys returns the variable names in sorted order.
func (e *Environment) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Len is the number of variables.
func (e *Environment) Len() int { return len(e.keys) }

// Lookup returns the value of key and whether it is set.
func (e *Environment) Lookup(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Get returns the value of key, or "" when unset.
func (e *Environment) Get(key string) string {
	return e.values[key]
}

// DBType returns the selected relational database variant.
func (e *Environment) DBType() DBType {
	return DBType(strings.ToLower(strings.TrimSpace(e.values[KeyDBType])))
}

// Environ overlays the file's variables on base (in os.Environ form).
// Values from the file win.
func (e *Environment) Environ(base []string) []string {
	out := make([]string, 0, len(base)+len(e.keys))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, overridden := e.values[name]; overridden {
			continue
		}
		out = append(out, kv)
	}
	for _, k := range e.keys {
		out = append(out, k+"="+e.values[k])
	}
	return out
}

// DBType is a relational database variant.
type DBType string

const (
	Postgres DBType = "postgres"
	MySQL    DBType = "mysql"
)

func (t DBType) Valid() bool {
	return t == Postgres || t == MySQL
}
