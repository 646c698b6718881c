package config

import (
	"os"
	"path/filepath"
)

// ResolveWorkingDir returns the absolute working directory for the run,
// defaulting to the process working directory when none was configured.
func ResolveWorkingDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}
