package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Role is the pipeline input a table serves as
type Role string

const (
	RoleAnnualReturns Role = "annual_returns"
	RoleExceptions    Role = "exceptions"
	RoleMetadata      Role = "metadata"
	RolePanel         Role = "panel"
	RoleReturns       Role = "returns"
)

// DefaultPatterns are the lower-case name globs tried for each role. Roles
// are matched in Roles order and a file claimed by one role is not offered
// to the next, so annual_returns.csv never doubles as the returns file.
var DefaultPatterns = map[Role][]string{
	RoleAnnualReturns: {"*annual*"},
	RoleExceptions:    {"*exception*"},
	RoleMetadata:      {"*meta*", "*size*"},
	RolePanel:         {"*panel*", "*balance*"},
	RoleReturns:       {"*return*"},
}

// Roles is the matching order of DefaultPatterns
var Roles = []Role{RoleAnnualReturns, RoleExceptions, RoleMetadata, RolePanel, RoleReturns}

var tableExtensions = map[string]bool{".csv": true, ".xlsx": true, ".xlsm": true}

// Discovery finds input tables under a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindTables lists the CSV and Excel files directly under dir, sorted by
// name. Excel lock files (~$...) are ignored.
func (d *Discovery) FindTables(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var out []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		if !tableExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindByPattern returns the tables whose lower-case name matches pattern
func (d *Discovery) FindByPattern(dir, pattern string) ([]FileInfo, error) {
	tables, err := d.FindTables(dir)
	if err != nil {
		return nil, err
	}
	return filterByPattern(tables, pattern), nil
}

func filterByPattern(tables []FileInfo, pattern string) []FileInfo {
	var out []FileInfo
	for _, f := range tables {
		if ok, _ := filepath.Match(pattern, strings.ToLower(f.Name)); ok {
			out = append(out, f)
		}
	}
	return out
}

// Discover assigns one table in dir to each role, preferring the most
// recently modified match. A missing directory yields an empty result.
func (d *Discovery) Discover(dir string) (map[Role]FileInfo, error) {
	found := make(map[Role]FileInfo)
	tables, err := d.FindTables(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return found, nil
		}
		return nil, err
	}

	claimed := make(map[string]bool)
	for _, role := range Roles {
		var candidates []FileInfo
		for _, pattern := range DefaultPatterns[role] {
			for _, f := range filterByPattern(tables, pattern) {
				if !claimed[f.Path] {
					candidates = append(candidates, f)
				}
			}
		}
		if latest, ok := GetLatestFile(candidates); ok {
			found[role] = latest
			claimed[latest.Path] = true
		}
	}
	return found, nil
}

// GetLatestFile returns the most recently modified file, ties broken by name
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}
	latest := files[0]
	for _, f := range files[1:] {
		if f.ModTime.After(latest.ModTime) || (f.ModTime.Equal(latest.ModTime) && f.Name > latest.Name) {
			latest = f
		}
	}
	return latest, true
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
