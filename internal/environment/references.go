package environment

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Reference is a variable the stack reads at runtime.
type Reference struct {
	Key    string
	Source string // first file that reads it, relative to the scanned root
}

// referenceExtractor finds variable names read by one kind of file.
type referenceExtractor interface {
	CanHandle(filename string) bool
	Extract(content []byte) []string
}

// sourceCallExtractor matches environment lookups in application code.
type sourceCallExtractor struct{}

var sourceExts = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".mjs": true,
	".rb": true, ".go": true, ".sh": true,
}

func (sourceCallExtractor) CanHandle(filename string) bool {
	return sourceExts[strings.ToLower(filepath.Ext(filename))] && !isTestFile(filename)
}

// callPatterns capture the key and the remaining arguments of a lookup call.
var callPatterns = []*regexp.Regexp{
	// os.getenv("X"), os.environ.get("X")
	regexp.MustCompile(`os\.(?:getenv|environ\.get)\(\s*['"]([A-Z_][A-Z0-9_]*)['"]([^)]*)\)`),
	// environs: env.str("X"), env.int("X", 5432)
	regexp.MustCompile(`\benv\.(?:str|int|bool|float|decimal|list|dict|json|url|path|log_level|timedelta|datetime|date|time|uuid|enum)\(\s*['"]([A-Z_][A-Z0-9_]*)['"]([^)]*)\)`),
}

var sourceCallPatterns = []*regexp.Regexp{
	// os.environ["X"]
	regexp.MustCompile(`os\.environ\[\s*['"]([A-Z_][A-Z0-9_]*)['"]\s*\]`),
	// process.env.X
	regexp.MustCompile(`process\.env\.([A-Z_][A-Z0-9_]*)`),
	// ENV["X"]
	regexp.MustCompile(`ENV\[['"]([A-Z_][A-Z0-9_]*)['"]\]`),
	// os.Getenv("X"), os.LookupEnv("X")
	regexp.MustCompile(`os\.(?:Getenv|LookupEnv)\("([A-Z_][A-Z0-9_]*)"\)`),
	// ${X} and ${X:?msg} in shell scripts; ${X:-d} has a fallback
	regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)(?:\}|:?\?)`),
}

func (sourceCallExtractor) Extract(content []byte) []string {
	var keys []string
	for _, pattern := range callPatterns {
		for _, m := range pattern.FindAllSubmatch(content, -1) {
			if hasDefault(string(m[2])) {
				continue
			}
			keys = append(keys, string(m[1]))
		}
	}
	for _, pattern := range sourceCallPatterns {
		for _, m := range pattern.FindAllSubmatch(content, -1) {
			keys = append(keys, string(m[1]))
		}
	}
	return keys
}

// hasDefault reports whether the arguments after the key supply a fallback
// value, either positionally or as default=. Other keyword arguments such as
// subcast= do not.
func hasDefault(rest string) bool {
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ",") {
		return false
	}
	for _, arg := range strings.Split(rest[1:], ",") {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		name, _, isKeyword := strings.Cut(arg, "=")
		if !isKeyword || strings.TrimSpace(name) == "default" {
			return true
		}
	}
	return false
}

// composeInterpolationExtractor matches ${X} and $X in compose files.
type composeInterpolationExtractor struct{}

func (composeInterpolationExtractor) CanHandle(filename string) bool {
	name := strings.ToLower(filepath.Base(filename))
	return strings.Contains(name, "compose") && (strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml"))
}

var interpolationPattern = regexp.MustCompile(`(?:^|[^$])\$(?:\{([A-Za-z_][A-Za-z0-9_]*)(:?[-?+][^}]*)?\}|([A-Za-z_][A-Za-z0-9_]*))`)

func (composeInterpolationExtractor) Extract(content []byte) []string {
	var keys []string
	for _, m := range interpolationPattern.FindAllSubmatch(content, -1) {
		switch {
		case len(m[1]) > 0:
			// ${X:-default} and ${X-default} do not need X to be set
			if mod := string(m[2]); strings.HasPrefix(mod, "-") || strings.HasPrefix(mod, ":-") {
				continue
			}
			keys = append(keys, string(m[1]))
		case len(m[3]) > 0:
			keys = append(keys, string(m[3]))
		}
	}
	return keys
}

func isTestFile(filename string) bool {
	name := strings.ToLower(filepath.ToSlash(filename))
	base := filepath.Base(name)
	return strings.HasPrefix(base, "test_") ||
		strings.HasSuffix(base, "_test.py") ||
		strings.HasSuffix(base, "_test.go") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.Contains(name, "/tests/")
}

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, ".venv": true, "venv": true,
	"__pycache__": true, ".mypy_cache": true, ".pytest_cache": true,
}

// ignoredKeys are provided by the runtime rather than the environment file.
var ignoredKeys = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "PWD": true, "SHELL": true,
	"HOSTNAME": true, "TERM": true, "LANG": true, "TZ": true, "PORT": true,
	"PYTHONPATH": true, "PYTHONUNBUFFERED": true, "NODE_ENV": true,
}

const maxScanSize = 1 << 20

// ScanReferences walks root and returns every variable read by application
// sources or compose files, sorted by key.
func ScanReferences(ctx context.Context, root string) ([]Reference, error) {
	extractors := []referenceExtractor{sourceCallExtractor{}, composeInterpolationExtractor{}}
	seen := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		var content []byte
		for _, ex := range extractors {
			if !ex.CanHandle(rel) {
				continue
			}
			if content == nil {
				if content, err = readSmall(path, d); err != nil || content == nil {
					return err
				}
			}
			for _, key := range ex.Extract(content) {
				if _, ok := seen[key]; !ok && !ignoredKeys[key] {
					seen[key] = rel
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	refs := make([]Reference, 0, len(seen))
	for key, source := range seen {
		refs = append(refs, Reference{Key: key, Source: source})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key < refs[j].Key })
	return refs, nil
}

func readSmall(path string, d fs.DirEntry) ([]byte, error) {
	info, err := d.Info()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxScanSize {
		return nil, nil
	}
	return os.ReadFile(path)
}

// Unset returns the references whose key the environment does not define.
func (e *Environment) Unset(refs []Reference) []Reference {
	var missing []Reference
	for _, ref := range refs {
		if _, ok := e.Lookup(ref.Key); !ok {
			missing = append(missing, ref)
		}
	}
	return missing
}
