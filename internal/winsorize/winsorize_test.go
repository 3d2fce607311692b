package winsorize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/entity"
)

func fp(v float64) *float64 { return &v }

// sampleRows builds n rows for one year-size group with values 1..n and an
// extreme value at each end
func sampleRows(year int, size entity.SizeBucket, n int) []Row {
	rows := make([]Row, 0, n)
	for i := 1; i <= n; i++ {
		v := float64(i)
		switch i {
		case 1:
			v = -1000
		case n:
			v = 1000
		}
		rows = append(rows, Row{Ticker: fmt.Sprintf("T%02d", i), Year: year, Size: size, Value: fp(v)})
	}
	return rows
}

func values(ps []*float64) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = *p
	}
	return out
}

func TestClip(t *testing.T) {
	rows := sampleRows(2020, entity.SizeLarge, 101)
	opts := Options{Percentile: 0.01, MinGroupSize: 10, Grouping: YearSize}

	res, rep := Clip(rows, "DD_m", opts)

	require.Len(t, rep.Groups, 1)
	g := rep.Groups[0]
	assert.Equal(t, "2020/large", g.Group)
	assert.Equal(t, 101, g.N)
	assert.False(t, g.Exempt)
	assert.Equal(t, 2.0, *g.Lower)
	assert.Equal(t, 100.0, *g.Upper)
	assert.Equal(t, 1, g.NLower)
	assert.Equal(t, 1, g.NUpper)
	assert.Equal(t, -1000.0, g.Before.Min)
	assert.Equal(t, 2.0, g.After.Min)
	assert.Equal(t, 100.0, g.After.Max)

	assert.Equal(t, 2.0, *res.Values[0])
	assert.Equal(t, 100.0, *res.Values[100])
	assert.Equal(t, -1000.0, *rows[0].Value, "input preserved")
	assert.Equal(t, 101, countKept(res))

	require.Len(t, rep.Affected, 2)
	assert.Equal(t, Change{Ticker: "T01", Year: 2020, Group: "2020/large", Before: -1000, After: 2, Direction: DirectionLower}, rep.Affected[0])
	assert.Equal(t, DirectionUpper, rep.Affected[1].Direction)
}

func TestClip_Idempotent(t *testing.T) {
	rows := append(sampleRows(2020, entity.SizeLarge, 37), sampleRows(2021, entity.SizeSmall, 58)...)
	for i := range rows {
		if i%7 == 0 {
			v := *rows[i].Value * 1.37
			rows[i].Value = &v
		}
	}
	opts := Options{Percentile: 0.05, MinGroupSize: 10, Grouping: YearSize}

	once, _ := Clip(rows, "sigma_E", opts)

	again := make([]Row, len(rows))
	for i, r := range rows {
		r.Value = once.Values[i]
		again[i] = r
	}
	twice, rep := Clip(again, "sigma_E", opts)

	assert.Equal(t, values(once.Values), values(twice.Values))
	assert.Empty(t, rep.Affected)
}

func TestTrim(t *testing.T) {
	rows := sampleRows(2020, entity.SizeMid, 101)
	res, rep := Trim(rows, "DD_a", Options{Percentile: 0.01, MinGroupSize: 10, Grouping: Year})

	assert.Equal(t, "2020", rep.Groups[0].Group)
	assert.False(t, res.Keep[0])
	assert.False(t, res.Keep[100])
	assert.Equal(t, 99, countKept(res))
	assert.Equal(t, -1000.0, *res.Values[0], "trimmed rows keep their value")
	require.Len(t, rep.Affected, 2)
	assert.True(t, rep.Affected[0].Removed)
	assert.Equal(t, 99, rep.Groups[0].After.N)
}

func TestApply_TypicalGroupSizes(t *testing.T) {
	for _, n := range []int{10, 20, 50, 100} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			rows := sampleRows(2020, entity.SizeLarge, n)

			clipOpts := DefaultOptions()
			clipped, clipRep := Apply(rows, "DD_m", clipOpts)
			require.Len(t, clipRep.Affected, 2)
			assert.Equal(t, 2.0, *clipped.Values[0])
			assert.Equal(t, float64(n-1), *clipped.Values[n-1])
			assert.Equal(t, n, countKept(clipped))

			again := make([]Row, n)
			for i, r := range rows {
				r.Value = clipped.Values[i]
				again[i] = r
			}
			_, againRep := Apply(again, "DD_m", clipOpts)
			assert.Empty(t, againRep.Affected)

			trimOpts := DefaultOptions()
			trimOpts.Mode = ModeTrim
			trimmed, trimRep := Apply(rows, "DD_m", trimOpts)
			assert.False(t, trimmed.Keep[0])
			assert.False(t, trimmed.Keep[n-1])
			assert.Equal(t, n-2, countKept(trimmed))
			assert.Equal(t, 1, trimRep.Groups[0].NLower)
			assert.Equal(t, 1, trimRep.Groups[0].NUpper)
		})
	}
}

func TestBounds(t *testing.T) {
	sorted := []float64{-1000, 2, 3, 4, 5, 6, 7, 8, 9, 1000}

	lower, upper := TrimBounds(sorted, 0.01)
	assert.InDelta(t, -909.82, lower, 1e-9)
	assert.InDelta(t, 910.81, upper, 1e-9)

	lower, upper = ClipBounds(sorted, 0.01)
	assert.Equal(t, 2.0, lower)
	assert.Equal(t, 9.0, upper)

	lower, upper = ClipBounds([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, 0.1)
	assert.Equal(t, 2.0, lower, "integral position matches linear quantile")
	assert.Equal(t, 10.0, upper)

	lower, upper = ClipBounds([]float64{1, 2}, 0.4)
	assert.InDelta(t, 1.4, lower, 1e-12)
	assert.InDelta(t, 1.6, upper, 1e-12)

	lower, upper = Bounds(ModeTrim, sorted, 0.01)
	assert.InDelta(t, -909.82, lower, 1e-9)
	assert.InDelta(t, 910.81, upper, 1e-9)
}

func TestApply_ExemptSmallGroups(t *testing.T) {
	rows := append(sampleRows(2020, entity.SizeLarge, 9), sampleRows(2020, entity.SizeSmall, 30)...)
	opts := DefaultOptions()
	opts.Mode = ModeTrim
	opts.Percentile = 0.05

	res, rep := Apply(rows, "DD_m", opts)

	require.Len(t, rep.Groups, 2)
	assert.True(t, rep.Groups[0].Exempt)
	assert.Nil(t, rep.Groups[0].Lower)
	assert.Equal(t, 1, rep.Exempt())
	for i := 0; i < 9; i++ {
		assert.True(t, res.Keep[i])
	}
	assert.Equal(t, 39-4, countKept(res), "linear bounds at p=0.05 drop two rows per side of the 30-row group")
}

func TestApply_NilValuesPassThrough(t *testing.T) {
	rows := sampleRows(2020, entity.SizeLarge, 20)
	rows = append(rows, Row{Ticker: "NIL", Year: 2020, Size: entity.SizeLarge})

	res, rep := Apply(rows, "DD_m", Options{Percentile: 0.05, MinGroupSize: 10, Grouping: Overall})

	assert.Equal(t, "all", rep.Groups[0].Group)
	assert.Equal(t, 20, rep.Groups[0].N)
	assert.Nil(t, res.Values[20])
	assert.True(t, res.Keep[20])
}

func TestParse(t *testing.T) {
	g, err := ParseGrouping("year_size")
	require.NoError(t, err)
	assert.Equal(t, YearSize, g)
	_, err = ParseGrouping("size")
	assert.Error(t, err)

	m, err := ParseMode("trim")
	require.NoError(t, err)
	assert.Equal(t, ModeTrim, m)
	_, err = ParseMode("cap")
	assert.Error(t, err)
}

func TestReportRendering(t *testing.T) {
	rows := append(sampleRows(2020, entity.SizeLarge, 101), sampleRows(2021, entity.SizeLarge, 5)...)
	_, clipRep := Clip(rows, "DD_m", Options{Percentile: 0.01, MinGroupSize: 10, Grouping: Year})
	_, trimRep := Trim(rows, "DD_a", Options{Percentile: 0.01, MinGroupSize: 10, Grouping: Year})

	text := RenderText([]Report{clipRep, trimRep})
	assert.Contains(t, text, "Metric: DD_m")
	assert.Contains(t, text, "Mode: trim")
	assert.Contains(t, text, "exempt")
	assert.True(t, strings.Contains(text, "2021"))

	records := ChangeRecords([]Report{clipRep, trimRep})
	require.Len(t, records, 4)
	assert.Equal(t, []string{"DD_m", "clip", "T01", "2020", "2020", "-1000", "2", "lower"}, records[0])
	assert.Equal(t, "", records[2][6], "trimmed rows have no after value")
	for _, r := range records {
		assert.Len(t, r, len(ChangeHeader))
	}

	groups := GroupRows([]Report{clipRep})
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], len(GroupHeader))
	assert.Nil(t, groups[1][6], "exempt group has no bounds")
}

func countKept(res Result) int {
	n := 0
	for _, k := range res.Keep {
		if k {
			n++
		}
	}
	return n
}
