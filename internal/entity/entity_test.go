package entity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketFromDummies(t *testing.T) {
	tests := []struct {
		large, mid int
		want       SizeBucket
	}{
		{large: 1, mid: 0, want: SizeLarge},
		{large: 0, mid: 1, want: SizeMid},
		{large: 1, mid: 1, want: SizeLarge},
		{large: 0, mid: 0, want: SizeSmall},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketFromDummies(tt.large, tt.mid))
	}
}

func TestParseSizeBucket(t *testing.T) {
	b, err := ParseSizeBucket("mid")
	require.NoError(t, err)
	assert.Equal(t, SizeMid, b)

	_, err = ParseSizeBucket("huge")
	assert.Error(t, err)
}

func TestLoader_LoadSizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esg.csv")
	content := strings.Join([]string{
		"instrument,year,dummylarge,dummymid,company",
		"JPM.N,2020,1,0,JPMorgan",
		"FITB.OQ,2020,0,1,Fifth Third",
		"ZION,2020,0,0,Zions",
		",2020,0,0,",
		"BAC,abc,1,0,Bank of America",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	strip := func(s string) string {
		if i := strings.Index(s, "."); i > 0 {
			return s[:i]
		}
		return s
	}
	m := NewMetadata()
	require.NoError(t, NewLoader(strip, nil).LoadSizes(path, m))

	assert.Equal(t, 3, m.Len())
	b, ok := m.Size("JPM", 2020)
	assert.True(t, ok)
	assert.Equal(t, SizeLarge, b)

	b, _ = m.Size("FITB", 2020)
	assert.Equal(t, SizeMid, b)

	b, ok = m.Size("ZION", 2021)
	assert.False(t, ok)
	assert.Equal(t, SizeSmall, b)

	assert.Equal(t, "Fifth Third", m.Company("FITB"))
	assert.Equal(t, []string{"FITB", "JPM", "ZION"}, m.Tickers())
}

func TestLoader_LoadCompanies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list_bank.csv")
	require.NoError(t, os.WriteFile(path, []byte("Ticker,Company,PermID\nJPM,JPMorgan Chase,1\n"), 0644))

	m := NewMetadata()
	require.NoError(t, NewLoader(nil, nil).LoadCompanies(path, m))
	assert.Equal(t, "JPMorgan Chase", m.Company("JPM"))
	assert.Equal(t, "", m.Company("BAC"))
}

func TestNilMetadata(t *testing.T) {
	var m *Metadata
	b, ok := m.Size("JPM", 2020)
	assert.False(t, ok)
	assert.Equal(t, SizeSmall, b)
	assert.Empty(t, m.Company("JPM"))
}
