package stack

import (
	"os"
	"path/filepath"
)

// composeFileNames are searched in order, matching docker compose's own lookup.
var composeFileNames = []string{
	"compose.yaml",
	"compose.yml",
	"docker-compose.yml",
	"docker-compose.yaml",
}

// FindComposeFile returns the first default compose file present in dir.
func FindComposeFile(dir string) (string, error) {
	for _, name := range composeFileNames {
		path := filepath.Join(dir, name)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, nil
		}
	}
	return "", os.ErrNotExist
}
