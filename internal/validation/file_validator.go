package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileValidator checks input files and output directories before a run starts
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

var tableExtensions = map[string]bool{".csv": true, ".txt": true, ".xlsx": true, ".xlsm": true}

// ValidateInputFile ensures path is a non-empty CSV or Excel file
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Input file does not exist", slog.String("path", path))
		return fmt.Errorf("input file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		v.logger.Error("Input file is empty", slog.String("path", path))
		return fmt.Errorf("input file %s is empty", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !tableExtensions[ext] {
		return fmt.Errorf("input file %s has unsupported extension %q", path, ext)
	}

	v.logger.Debug("Input file validated",
		slog.String("path", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOptionalInputFile validates path only when it is set
func (v *FileValidator) ValidateOptionalInputFile(path string) error {
	if path == "" {
		return nil
	}
	return v.ValidateInputFile(path)
}

// ValidateOutputDirectory ensures the directory exists or can be created and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := tmp.Name()
	tmp.Close()
	os.Remove(name)

	return nil
}
