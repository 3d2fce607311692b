package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Resolve makes every relative directory absolute against base.
// An empty base means the current working directory.
func (p PathsConfig) Resolve(base string) (PathsConfig, error) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return p, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	abs := func(dir string) string {
		if dir == "" || filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(base, dir)
	}
	return PathsConfig{
		DataDir:   abs(p.DataDir),
		OutputDir: abs(p.OutputDir),
		LogsDir:   abs(p.LogsDir),
	}, nil
}

// EnsureDirectories creates the output and logs directories
func (p PathsConfig) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// OutputPath returns the location of a named output file
func (p PathsConfig) OutputPath(name string) string {
	return filepath.Join(p.OutputDir, name)
}

// DataPath returns the location of an input file; absolute names pass through
func (p PathsConfig) DataPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

// FileExists reports whether path names an existing regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
