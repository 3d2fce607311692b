package volatility

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/config"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/exporter"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/returns"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/stats"
	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/timeintegrity"
)

func policy(t *testing.T, variant string) Policy {
	t.Helper()
	cfg := config.Default().Volatility
	cfg.Variant = variant
	p, err := PolicyFromConfig(cfg)
	require.NoError(t, err)
	return p
}

// monthlySeries returns n month-end points ending in December of lastYear
func monthlySeries(n, lastYear int, value func(i int) float64) returns.Series {
	end := time.Date(lastYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	s := make(returns.Series, n)
	for i := 0; i < n; i++ {
		d := time.Date(end.Year(), end.Month()-time.Month(n-1-i), 1, 0, 0, 0, 0, time.UTC)
		s[i] = returns.Point{Date: d.AddDate(0, 1, -1), Value: value(i)}
	}
	return s
}

func alternating(i int) float64 {
	if i%2 == 0 {
		return 0.02 + 0.001*float64(i%5)
	}
	return -0.015 - 0.002*float64(i%3)
}

func TestPolicy_AnnualRollingStd(t *testing.T) {
	p := policy(t, "annual")
	var s returns.Series
	for i, v := range []float64{0.1, 0.2, 0.15, 0.25, 0.18} {
		s = append(s, returns.Point{Date: returns.YearStart(2020 + i), Value: v})
	}

	e2023 := p.Estimate("BANK", s, 2023)
	require.NotNil(t, e2023.SigmaE)
	assert.InDelta(t, stats.StdDev([]float64{0.1, 0.2, 0.15}), *e2023.SigmaE, 1e-12)
	assert.Equal(t, PrimaryWindow{Window: 3}, e2023.Method)
	assert.Equal(t, &Provenance{WindowStartYear: 2020, WindowEndYear: 2022}, e2023.Provenance)

	e2024 := p.Estimate("BANK", s, 2024)
	require.NotNil(t, e2024.SigmaE)
	assert.InDelta(t, stats.StdDev([]float64{0.2, 0.15, 0.25}), *e2024.SigmaE, 1e-12)
	require.NotNil(t, e2024.Provenance)
	assert.Equal(t, 2021, e2024.Provenance.WindowStartYear)

	e2021 := p.Estimate("BANK", s, 2021)
	assert.Nil(t, e2021.SigmaE)
	assert.Equal(t, PeerMedian{Window: 1}, e2021.Method)
	assert.Equal(t, FlagInsufficientData, e2021.Flag)

	e2020 := p.Estimate("BANK", s, 2020)
	assert.Equal(t, NoData{}, e2020.Method)
	assert.Equal(t, FlagNoData, e2020.Flag)
	assert.Nil(t, e2020.Provenance, "no observations means no window")
}

func TestPolicy_MonthlyTiers(t *testing.T) {
	p := policy(t, "monthly")

	tests := []struct {
		name   string
		n      int
		kind   MethodKind
		flag   Flag
		hasSig bool
	}{
		{"full window", 40, KindPrimaryWindow, FlagNone, true},
		{"primary threshold", 24, KindPrimaryWindow, FlagNone, true},
		{"ewma upper", 23, KindEwmaFallback, FlagNone, true},
		{"ewma threshold", 12, KindEwmaFallback, FlagNone, true},
		{"peer placeholder", 11, KindPeerMedian, FlagInsufficientData, false},
		{"single month", 1, KindPeerMedian, FlagInsufficientData, false},
		{"no data", 0, KindNone, FlagNoData, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := monthlySeries(tt.n, 2019, alternating)
			e := p.Estimate("JPM", s, 2020)
			assert.Equal(t, tt.kind, e.Method.Kind())
			assert.Equal(t, tt.flag, e.Flag)
			assert.Equal(t, tt.hasSig, e.SigmaE != nil)
			assert.Equal(t, min(tt.n, 36), e.ObsCount)
			if tt.n == 0 {
				assert.Nil(t, e.Provenance)
				return
			}
			require.NotNil(t, e.Provenance)
			assert.Equal(t, 2019, e.Provenance.WindowEndYear)
		})
	}
}

func TestPolicy_MonthlyPrimaryValue(t *testing.T) {
	p := policy(t, "monthly")
	s := monthlySeries(48, 2019, alternating)

	e := p.Estimate("JPM", s, 2020)
	want := stats.StdDev(s[12:].Values()) * math.Sqrt(12)
	require.NotNil(t, e.SigmaE)
	assert.InDelta(t, want, *e.SigmaE, 1e-12)
	assert.Equal(t, 36, e.Method.WindowLen())
	require.NotNil(t, e.Provenance)
	assert.Equal(t, 2017, e.Provenance.WindowStartYear)
}

func TestEWMA(t *testing.T) {
	values := []float64{0.01, -0.02, 0.03}
	lambda := 0.94
	w := []float64{(1 - lambda) * lambda * lambda, (1 - lambda) * lambda, 1 - lambda}
	total := w[0] + w[1] + w[2]
	variance := (w[0]*0.0001 + w[1]*0.0004 + w[2]*0.0009) / total

	assert.InDelta(t, math.Sqrt(variance), EWMA(values, lambda), 1e-15)
	assert.True(t, math.IsNaN(EWMA(nil, lambda)))
}

func TestPolicy_EwmaValue(t *testing.T) {
	p := policy(t, "monthly")
	s := monthlySeries(15, 2019, alternating)
	e := p.Estimate("JPM", s, 2020)
	require.NotNil(t, e.SigmaE)
	assert.InDelta(t, EWMA(s.Values(), 0.94)*math.Sqrt(12), *e.SigmaE, 1e-12)
	assert.Equal(t, EwmaFallback{Window: 15, Lambda: 0.94}, e.Method)
}

func TestPolicy_NoLookahead(t *testing.T) {
	for _, variant := range []string{"monthly", "daily", "annual"} {
		t.Run(variant, func(t *testing.T) {
			p := policy(t, variant)
			var past returns.Series
			switch variant {
			case "monthly":
				past = monthlySeries(30, 2019, alternating)
			case "daily":
				for d := 0; d < 200; d++ {
					past = append(past, returns.Point{Date: time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d), Value: alternating(d) / 5})
				}
			case "annual":
				for y := 2015; y < 2020; y++ {
					past = append(past, returns.Point{Date: returns.YearStart(y), Value: alternating(y)})
				}
			}
			future := append(returns.Series{}, past...)
			future = append(future,
				returns.Point{Date: returns.YearStart(2020), Value: 0.9},
				returns.Point{Date: time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC), Value: -0.9},
			)

			clean := p.Estimate("X", past, 2020)
			leaked := p.Estimate("X", future, 2020)
			require.NotNil(t, clean.SigmaE)
			assert.Equal(t, *clean.SigmaE, *leaked.SigmaE)
			assert.Equal(t, clean.ObsCount, leaked.ObsCount)
			assert.NoError(t, timeintegrity.Assert([]timeintegrity.Row{leaked.TimeRow()}))
		})
	}
}

func TestPolicy_DailyTiers(t *testing.T) {
	p := policy(t, "daily")
	days := func(n int) returns.Series {
		var s returns.Series
		for d := 0; d < n; d++ {
			s = append(s, returns.Point{Date: time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d), Value: alternating(d) / 5})
		}
		return s
	}

	full := p.Estimate("X", days(300), 2020)
	assert.Equal(t, KindPrimaryWindow, full.Method.Kind())
	assert.Equal(t, 252, full.ObsCount)

	partial := p.Estimate("X", days(120), 2020)
	assert.Equal(t, PartialWindow{Window: 120}, partial.Method)
	assert.Equal(t, FlagInsufficientData, partial.Flag)
	require.NotNil(t, partial.SigmaE)
	assert.InDelta(t, stats.StdDev(days(120).Values())*math.Sqrt(252), *partial.SigmaE, 1e-12)

	thin := p.Estimate("X", days(60), 2020)
	assert.Equal(t, KindPeerMedian, thin.Method.Kind())
	assert.Nil(t, thin.SigmaE)

	old := p.Estimate("X", days(120), 2021)
	assert.Equal(t, KindNone, old.Method.Kind(), "only year t-1 counts for the daily variant")
}

func TestImputePeerMedian(t *testing.T) {
	input := []Estimate{
		{Ticker: "A", Year: 2020, SizeBucket: entity.SizeLarge, SigmaE: floatPtr(0.15), Method: PrimaryWindow{Window: 36}},
		{Ticker: "B", Year: 2020, SizeBucket: entity.SizeLarge, SigmaE: floatPtr(0.20), Method: EwmaFallback{Window: 14, Lambda: 0.94}},
		{Ticker: "C", Year: 2020, SizeBucket: entity.SizeLarge, Method: NoData{}, Flag: FlagNoData},
		{Ticker: "D", Year: 2020, SizeBucket: entity.SizeSmall, Method: PeerMedian{Window: 4}, ObsCount: 4, Flag: FlagInsufficientData},
		{Ticker: "E", Year: 2021, SizeBucket: entity.SizeLarge, SigmaE: floatPtr(0.5), Method: PrimaryWindow{Window: 36}},
	}

	out, report := ImputePeerMedian(input)

	require.Len(t, out, 5)
	require.NotNil(t, out[2].SigmaE)
	assert.InDelta(t, 0.175, *out[2].SigmaE, 1e-12)
	assert.Equal(t, PeerMedian{Window: 0}, out[2].Method)
	assert.Equal(t, FlagNoData, out[2].Flag, "flag is kept")

	assert.Nil(t, out[3].SigmaE, "no small peers in 2020")
	assert.Equal(t, PeerMedian{Window: 4}, out[3].Method)

	assert.Nil(t, input[2].SigmaE, "input is not modified")
	assert.Equal(t, NoData{}, input[2].Method)

	assert.Equal(t, 1, report.Filled)
	assert.Equal(t, 1, report.Unfilled)
	require.Len(t, report.Groups, 2)
	assert.Equal(t, entity.SizeLarge, report.Groups[0].Size)
	assert.Equal(t, 2, report.Groups[0].Peers)
}

func TestImputePeerMedian_IgnoresImputedPeers(t *testing.T) {
	input := []Estimate{
		{Ticker: "A", Year: 2020, SizeBucket: entity.SizeMid, SigmaE: floatPtr(0.9), Method: PeerMedian{Window: 3}},
		{Ticker: "B", Year: 2020, SizeBucket: entity.SizeMid, Method: NoData{}},
	}
	out, report := ImputePeerMedian(input)
	assert.InDelta(t, 0.9, *out[0].SigmaE, 0, "an already imputed value is not a peer")
	assert.Nil(t, out[1].SigmaE)
	assert.Equal(t, 2, report.Unfilled)
}

func TestEstimator_EstimateAll(t *testing.T) {
	panel := returns.NewPanel(returns.Monthly)
	panel.Set("BBB", monthlySeries(30, 2019, alternating))
	panel.Set("AAA", monthlySeries(5, 2019, alternating))

	meta := entity.NewMetadata()
	meta.SetSize("BBB", 2020, entity.SizeLarge)

	est := NewEstimator(policy(t, "monthly"), meta, WithWorkers(2))
	out, err := est.EstimateAll(context.Background(), panel, []int{2019, 2020})
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, "AAA", out[0].Ticker)
	assert.Equal(t, 2019, out[0].Year)
	assert.Equal(t, "BBB", out[3].Ticker)
	assert.Equal(t, 2020, out[3].Year)
	assert.Equal(t, entity.SizeLarge, out[3].SizeBucket)
	assert.Equal(t, entity.SizeSmall, out[0].SizeBucket)
	assert.NoError(t, timeintegrity.Assert(timeintegrity.Rows(out)))
}

func TestEstimator_Cancelled(t *testing.T) {
	panel := returns.NewPanel(returns.Monthly)
	panel.Set("A", monthlySeries(30, 2019, alternating))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEstimator(policy(t, "monthly"), nil).EstimateAll(ctx, panel, []int{2020})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTargetYears(t *testing.T) {
	panel := returns.NewPanel(returns.Monthly)
	panel.Set("A", monthlySeries(36, 2019, alternating))

	assert.Equal(t, []int{2018, 2019, 2020}, TargetYears(panel, 0, 0))
	assert.Equal(t, []int{2019, 2020}, TargetYears(panel, 2019, 2025))
	assert.Nil(t, TargetYears(returns.NewPanel(returns.Monthly), 0, 0))
}

func TestParseMethod(t *testing.T) {
	methods := []Method{
		PrimaryWindow{Window: 36},
		EwmaFallback{Window: 14, Lambda: 0.94},
		PartialWindow{Window: 120},
		PeerMedian{Window: 3},
		NoData{},
	}
	for _, m := range methods {
		t.Run(m.Kind().String(), func(t *testing.T) {
			got, err := ParseMethod(m.Kind().String(), m.WindowLen(), 0.94)
			require.NoError(t, err)
			assert.Equal(t, m, got)
		})
	}
	_, err := ParseMethod("monthly36", 36, 0.94)
	assert.Error(t, err)
}

func TestCheckQuality(t *testing.T) {
	rows := []Estimate{
		{Year: 2020, SigmaE: floatPtr(0.2), Method: PrimaryWindow{Window: 36}},
		{Year: 2020, SigmaE: floatPtr(1.5), Method: PrimaryWindow{Window: 36}},
		{Year: 2020, Method: NoData{}},
		{Year: 2021, SigmaE: floatPtr(0.05), Method: EwmaFallback{Window: 12}},
	}
	q := CheckQuality(rows, PlausibleLower, PlausibleUpper)

	require.Len(t, q.Years, 2)
	y := q.Years[0]
	assert.Equal(t, 3, y.Total)
	assert.InDelta(t, 2.0/3.0, y.Coverage(), 1e-12)
	assert.InDelta(t, 0.5, y.InRangeShare(), 1e-12)
	assert.Equal(t, 2, y.Methods[KindPrimaryWindow])
	assert.Equal(t, 4, q.Overall.Total)
	assert.Equal(t, 1, q.Overall.InRange)

	records := QualityRecords(q)
	require.Len(t, records, 3)
	assert.Equal(t, "overall", records[2][0])
	assert.Len(t, records[0], len(QualityHeader))
}

func TestPersist_WriteAndLoad(t *testing.T) {
	rows := []Estimate{
		{Ticker: "A", Year: 2020, SigmaE: floatPtr(0.25), Method: EwmaFallback{Window: 14, Lambda: 0.94}, ObsCount: 14,
			SizeBucket: entity.SizeMid, Provenance: &Provenance{WindowStartYear: 2018, WindowEndYear: 2019}},
		{Ticker: "B", Year: 2020, Method: NoData{}, Flag: FlagNoData, SizeBucket: entity.SizeSmall},
	}
	dir := t.TempDir()
	_, err := exporter.NewCSVWriter(dir, nil).WriteTable("volatility.csv", Header, Records(rows))
	require.NoError(t, err)

	got, err := Load(filepath.Join(dir, "volatility.csv"), 0.94)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	recs := Records(rows)
	assert.Equal(t, []string{"2018", "2019", "2", "1"}, recs[0][8:12])
	assert.Equal(t, []string{"", "", "", ""}, recs[1][8:12], "no_data rows have no window")

	tr := rows[1].TimeRow()
	assert.Nil(t, tr.WindowStartYear)
	assert.Nil(t, tr.WindowEndYear)
}
