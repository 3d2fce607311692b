package operations

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v2"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
)

// RunManifest records what a run read, what it wrote and how it went
type RunManifest struct {
	RunID        string           `yaml:"run_id"`
	App          string           `yaml:"app"`
	Version      string           `yaml:"version"`
	Variant      string           `yaml:"variant"`
	Status       RunStatus        `yaml:"status"`
	Error        string           `yaml:"error,omitempty"`
	StartedAt    string           `yaml:"started_at"`
	FinishedAt   string           `yaml:"finished_at"`
	ConfigDigest string           `yaml:"config_digest"`
	Inputs       []FileDigest     `yaml:"inputs"`
	Outputs      []FileDigest     `yaml:"outputs"`
	RowCounts    map[string]int   `yaml:"row_counts"`
	Dropped      map[string]int   `yaml:"dropped,omitempty"`
	Stages       []StageExecution `yaml:"stages"`
}

// FileDigest identifies a file by its BLAKE2b-256 content hash
type FileDigest struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Size    int64  `yaml:"size"`
	Blake2b string `yaml:"blake2b"`
}

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	StageID   string `yaml:"stage_id"`
	Name      string `yaml:"name"`
	Status    string `yaml:"status"`
	Duration  string `yaml:"duration"`
	Rows      int    `yaml:"rows"`
	Error     string `yaml:"error,omitempty"`
	ErrorType string `yaml:"error_type,omitempty"`
	Message   string `yaml:"message,omitempty"`
}

// DigestFile hashes the file at path
func DigestFile(name, path string) (FileDigest, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileDigest{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return FileDigest{}, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return FileDigest{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return FileDigest{Name: name, Path: path, Size: n, Blake2b: hex.EncodeToString(h.Sum(nil))}, nil
}

// DigestConfig hashes the YAML rendering of the effective configuration
func DigestConfig(cfg *config.Config) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewRunManifest summarizes a finished run. Files that cannot be hashed are
// listed without a digest.
func NewRunManifest(state *RunState) *RunManifest {
	m := &RunManifest{
		RunID:     state.ID,
		App:       config.AppName,
		Version:   config.AppVersion,
		Status:    state.Status,
		StartedAt: state.StartTime.UTC().Format(time.RFC3339),
		RowCounts: state.RowCounts,
	}
	if state.Config != nil {
		m.Variant = state.Config.Volatility.Variant
		if digest, err := DigestConfig(state.Config); err == nil {
			m.ConfigDigest = digest
		}
	}
	if state.EndTime != nil {
		m.FinishedAt = state.EndTime.UTC().Format(time.RFC3339)
	}
	if state.Error != nil {
		m.Error = state.Error.Error()
	}
	if state.Dropped.Len() > 0 {
		m.Dropped = state.Dropped.Counts()
	}

	inputs := map[string]string{
		"returns":        state.Inputs.Returns,
		"annual_returns": state.Inputs.AnnualReturns,
		"metadata":       state.Inputs.Metadata,
		"exceptions":     state.Inputs.Exceptions,
		"panel":          state.Inputs.Panel,
	}
	m.Inputs = digestAll(inputs)
	m.Outputs = digestAll(state.Outputs)

	for _, st := range state.StepStates() {
		status, rows, err := st.Snapshot()
		exec := StageExecution{
			StageID:  st.ID,
			Name:     st.Name,
			Status:   string(status),
			Duration: st.Duration().Round(time.Millisecond).String(),
			Rows:     rows,
			Message:  st.Message,
		}
		if err != nil {
			exec.Error = err.Error()
			exec.ErrorType = string(st.ErrorType)
		}
		m.Stages = append(m.Stages, exec)
	}
	return m
}

func digestAll(files map[string]string) []FileDigest {
	names := make([]string, 0, len(files))
	for name, path := range files {
		if path != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]FileDigest, 0, len(names))
	for _, name := range names {
		d, err := DigestFile(name, files[name])
		if err != nil {
			d = FileDigest{Name: name, Path: files[name]}
		}
		out = append(out, d)
	}
	return out
}

// Write saves the manifest as YAML
func (m *RunManifest) Write(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by Write
func ReadManifest(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m RunManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
