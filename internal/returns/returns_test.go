package returns

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func writeFile(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestStandardizer(t *testing.T) {
	s := NewStandardizer(map[string]string{"BRKb.N": "BRK", "JPM.N": "JPMX"})

	tests := []struct {
		in   string
		want string
	}{
		{"JPM.N", "JPMX"},
		{"BRKb.N", "BRK"},
		{"BAC.N", "BAC"},
		{"ZION.OQ", "ZION"},
		{"FITB.O", "FITB"},
		{"CMA.K", "CMA"},
		{"ABCB.PK", "ABCB"},
		{" WFC ", "WFC"},
		{".N", ".N"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Standardize(tt.in))
		})
	}
	assert.Equal(t, 2, s.Exceptions())
}

func TestLoadExceptions(t *testing.T) {
	path := writeFile(t, "exceptions.csv",
		"return_instrument,list_bank_ticker",
		"BRKb.N,BRK",
		",EMPTY",
	)
	got, err := LoadExceptions(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BRKb.N": "BRK"}, got)

	bad := writeFile(t, "bad.csv", "foo,bar", "1,2")
	_, err = LoadExceptions(bad)
	assert.Error(t, err)
}

func TestLoader_Load(t *testing.T) {
	path := writeFile(t, "returns.csv",
		"Instrument,Date,Total Return",
		"JPM.N,2020-01-31,1.5",
		"JPM.N,2020-02-28,NA",
		"BAC.N,not-a-date,2.0",
		"BAC.N,2020-01-31,-3",
		"JPM.N,2020-03-31,abc",
	)
	obs, st, err := NewLoader(nil, nil).Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, st.Rows)
	assert.Equal(t, 2, st.Loaded)
	assert.Equal(t, 3, st.Skipped)
	require.Len(t, obs, 2)
	assert.Equal(t, "JPM", obs[0].Ticker)
	assert.Equal(t, "JPM.N", obs[0].Instrument)
	assert.Equal(t, 2, obs[0].Line)
	assert.Equal(t, "BAC", obs[1].Ticker)
	assert.InDelta(t, -3.0, obs[1].ReturnPct, 1e-12)
}

func TestLoader_Load_MissingColumns(t *testing.T) {
	path := writeFile(t, "returns.csv", "Instrument,Date", "JPM.N,2020-01-31")
	_, _, err := NewLoader(nil, nil).Load(path)
	assert.Error(t, err)
}

func TestLoader_LoadDirectAnnual(t *testing.T) {
	path := writeFile(t, "annual.csv",
		"instrument,year,annual_return",
		"JPM.N,2019,0.12",
		"BAC.N,2019,",
		"BAC.N,2018,-0.05",
	)
	got, err := NewLoader(nil, nil).LoadDirectAnnual(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, DirectAnnual{Ticker: "BAC", Year: 2018, Return: -0.05}, got[0])
	assert.Equal(t, DirectAnnual{Ticker: "JPM", Year: 2019, Return: 0.12}, got[1])
}

func TestLogReturn(t *testing.T) {
	tests := []struct {
		name string
		pct  float64
		want float64
		ok   bool
	}{
		{"positive", 10, math.Log(1.1), true},
		{"negative", -50, math.Log(0.5), true},
		{"zero", 0, 0, true},
		{"total loss", -100, 0, false},
		{"beyond total loss", -150, 0, false},
		{"nan", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LogReturn(tt.pct)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestBuildLogPanel(t *testing.T) {
	obs := []Observation{
		{Ticker: "JPM", Date: date(2020, 3, 31), ReturnPct: 2},
		{Ticker: "JPM", Date: date(2020, 1, 31), ReturnPct: 1},
		{Ticker: "JPM", Date: date(2020, 1, 31), ReturnPct: 9},
		{Ticker: "JPM", Date: date(2020, 2, 29), ReturnPct: -100},
		{Ticker: "BAC", Date: date(2020, 1, 31), ReturnPct: math.Inf(-1)},
		{Ticker: "BAC", Date: date(2020, 2, 29), ReturnPct: 250},
		{Ticker: "BAC", Date: date(2020, 3, 31), ReturnPct: -5},
	}

	panel, drops := BuildLogPanel(obs, Monthly, 1.0)

	assert.Equal(t, DropCounts{
		DropDuplicate:     1,
		DropTotalLoss:     1,
		DropNonFinite:     1,
		DropSevereOutlier: 1,
	}, drops)
	assert.Equal(t, 4, drops.Total())
	assert.Equal(t, []string{"BAC", "JPM"}, panel.Tickers())

	jpm := panel.Series("JPM")
	require.Len(t, jpm, 2)
	assert.Equal(t, date(2020, 1, 31), jpm[0].Date)
	assert.InDelta(t, math.Log(1.01), jpm[0].Value, 1e-12, "first duplicate is kept")
	assert.Equal(t, date(2020, 3, 31), jpm[1].Date)
	assert.Equal(t, 3, panel.Len())
	assert.Equal(t, []int{2020}, panel.Years())
}

func TestSeries_Before(t *testing.T) {
	s := Series{
		{Date: date(2019, 12, 31), Value: 1},
		{Date: date(2020, 1, 1), Value: 2},
		{Date: date(2020, 6, 30), Value: 3},
	}
	assert.Equal(t, []float64{1}, s.Before(YearStart(2020)).Values())
	assert.Equal(t, []float64{2, 3}, s.Between(YearStart(2020), YearStart(2021)).Values())
	assert.Empty(t, s.Before(YearStart(2019)))
}

func TestCompoundAnnual(t *testing.T) {
	pcts := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}
	got, n, ok := CompoundAnnual(pcts, 9)
	require.True(t, ok)
	assert.Equal(t, 9, n)
	assert.InDelta(t, math.Pow(1.01, 9)-1, got, 1e-12)

	_, n, ok = CompoundAnnual([]float64{1, math.NaN(), 2}, 9)
	assert.False(t, ok)
	assert.Equal(t, 2, n)
}

func TestBuildAnnualIndex_Tiers(t *testing.T) {
	var monthly []Observation
	for m := time.January; m <= time.December; m++ {
		monthly = append(monthly, Observation{Ticker: "JPM", Date: date(2019, m, 28), ReturnPct: 1})
	}
	for m := time.January; m <= time.March; m++ {
		monthly = append(monthly, Observation{Ticker: "JPM", Date: date(2020, m, 28), ReturnPct: 2})
	}
	direct := []DirectAnnual{
		{Ticker: "JPM", Year: 2019, Return: 0.5},
		{Ticker: "JPM", Year: 2020, Return: 0.07},
		{Ticker: "BAC", Year: 2018, Return: -0.1},
	}

	idx := BuildAnnualIndex(monthly, direct, 9)

	r2019, ok := idx.Get("JPM", 2019)
	require.True(t, ok)
	assert.Equal(t, TierCompounded, r2019.Tier)
	assert.Equal(t, 12, r2019.Months)
	assert.InDelta(t, math.Pow(1.01, 12)-1, r2019.Rit, 1e-12, "compounded months win over direct")

	r2020, _ := idx.Get("JPM", 2020)
	assert.Equal(t, TierDirect, r2020.Tier)
	assert.InDelta(t, 0.07, r2020.Rit, 1e-12)

	bac, _ := idx.Get("BAC", 2018)
	assert.Equal(t, TierDirect, bac.Tier)

	assert.Len(t, idx.Rows(), 3)
	assert.Equal(t, map[Tier]int{TierCompounded: 1, TierDirect: 2}, idx.TierCounts())
}

func TestBuildAnnualIndex_Excluded(t *testing.T) {
	monthly := []Observation{{Ticker: "WFC", Date: date(2021, 1, 31), ReturnPct: 3}}
	idx := BuildAnnualIndex(monthly, nil, 9)

	row, ok := idx.Get("WFC", 2021)
	require.True(t, ok)
	assert.Equal(t, TierExcluded, row.Tier)
	assert.True(t, math.IsNaN(row.Rit))
	assert.False(t, row.Valid())
	assert.Empty(t, idx.Panel().Tickers())
}

func TestAnnualIndex_LaggedNeverSkipsGap(t *testing.T) {
	direct := []DirectAnnual{
		{Ticker: "JPM", Year: 2018, Return: 0.1},
		{Ticker: "JPM", Year: 2020, Return: 0.3},
	}
	idx := BuildAnnualIndex(nil, direct, 9)

	v, src, ok := idx.Lagged("JPM", 2021)
	require.True(t, ok)
	assert.Equal(t, 2020, src)
	assert.InDelta(t, 0.3, v, 1e-12)

	_, _, ok = idx.Lagged("JPM", 2020)
	assert.False(t, ok, "2019 is missing and 2018 must not be used")
}

func TestAnnualIndex_Panel(t *testing.T) {
	direct := []DirectAnnual{
		{Ticker: "JPM", Year: 2020, Return: 0.3},
		{Ticker: "JPM", Year: 2018, Return: 0.1},
	}
	p := BuildAnnualIndex(nil, direct, 9).Panel()

	assert.Equal(t, Annual, p.Frequency)
	s := p.Series("JPM")
	require.Len(t, s, 2)
	assert.Equal(t, YearStart(2018), s[0].Date)
	assert.Equal(t, []float64{0.1, 0.3}, s.Values())
}

func TestParseFrequency(t *testing.T) {
	for _, f := range []Frequency{Monthly, Daily, Annual} {
		got, err := ParseFrequency(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFrequency("weekly")
	assert.Error(t, err)
	assert.Equal(t, 12.0, Monthly.PeriodsPerYear())
	assert.Equal(t, 252.0, Daily.PeriodsPerYear())
}

func TestAnnualRecords(t *testing.T) {
	monthly := []Observation{{Ticker: "WFC", Date: date(2021, 1, 31), ReturnPct: 3}}
	direct := []DirectAnnual{{Ticker: "BAC", Year: 2020, Return: 0.25}}
	recs := AnnualRecords(BuildAnnualIndex(monthly, direct, 9))

	assert.Equal(t, [][]string{
		{"BAC", "2020", "0.25", "tier2_direct", "0"},
		{"WFC", "2021", "", "tier3_excluded", "1"},
	}, recs)
}
