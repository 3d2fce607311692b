package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestFindTables(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, dir, "b.csv", now)
	touch(t, dir, "a.XLSX", now)
	touch(t, dir, "~$a.xlsx", now)
	touch(t, dir, "notes.txt", now)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0755))

	tables, err := NewDiscovery("").FindTables(dir)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "a.XLSX", tables[0].Name)
	assert.Equal(t, "b.csv", tables[1].Name)
	assert.Equal(t, int64(2), tables[1].Size)

	_, err = NewDiscovery("").FindTables(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFindByPattern_RelativeToBase(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "data"), 0755))
	touch(t, filepath.Join(base, "data"), "Bank_Panel_2024.csv", time.Now())
	touch(t, filepath.Join(base, "data"), "returns.csv", time.Now())

	got, err := NewDiscovery(base).FindByPattern("data", "*panel*")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, filepath.Join(base, "data", "Bank_Panel_2024.csv"), got[0].Path)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-1 * time.Hour)

	touch(t, dir, "annual_returns.csv", recent)
	touch(t, dir, "monthly_returns_v1.csv", old)
	returnsV2 := touch(t, dir, "monthly_returns_v2.csv", recent)
	touch(t, dir, "size_metadata.xlsx", old)
	touch(t, dir, "ticker_exceptions.csv", old)
	touch(t, dir, "dd_input_panel.csv", old)

	found, err := NewDiscovery("").Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, "annual_returns.csv", found[RoleAnnualReturns].Name)
	assert.Equal(t, returnsV2, found[RoleReturns].Path, "the newest unclaimed match wins")
	assert.Equal(t, "size_metadata.xlsx", found[RoleMetadata].Name)
	assert.Equal(t, "ticker_exceptions.csv", found[RoleExceptions].Name)
	assert.Equal(t, "dd_input_panel.csv", found[RolePanel].Name)
}

func TestDiscover_MissingDirectory(t *testing.T) {
	found, err := NewDiscovery("").Discover(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGetLatestFile(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		files  []FileInfo
		want   string
		wantOK bool
	}{
		{name: "empty", files: nil},
		{name: "newest", files: []FileInfo{{Name: "a", ModTime: now}, {Name: "b", ModTime: now.Add(-time.Hour)}}, want: "a", wantOK: true},
		{name: "tie by name", files: []FileInfo{{Name: "a", ModTime: now}, {Name: "c", ModTime: now}, {Name: "b", ModTime: now}}, want: "c", wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetLatestFile(tt.files)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}
