package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdDev(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{name: "three values", xs: []float64{0.1, 0.2, 0.15}, want: 0.05},
		{name: "constant", xs: []float64{2, 2, 2, 2}, want: 0},
		{name: "two values", xs: []float64{1, 3}, want: math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, StdDev(tt.xs), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(StdDev([]float64{1})))
	assert.True(t, math.IsNaN(StdDev(nil)))
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		q    float64
		want float64
	}{
		{q: 0, want: 1},
		{q: 0.1, want: 1.4},
		{q: 0.25, want: 2},
		{q: 0.5, want: 3},
		{q: 0.9, want: 4.6},
		{q: 1, want: 5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(sorted, tt.q), 1e-12, "q=%v", tt.q)
	}
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.3))
}

func TestQuantileOrderStatistics(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	assert.Equal(t, 1.0, QuantileLower(sorted, 0.1))
	assert.Equal(t, 2.0, QuantileHigher(sorted, 0.1))
	assert.Equal(t, 4.0, QuantileLower(sorted, 0.9))
	assert.Equal(t, 5.0, QuantileHigher(sorted, 0.9))
	assert.Equal(t, 3.0, QuantileLower(sorted, 0.5))
	assert.Equal(t, 3.0, QuantileHigher(sorted, 0.5))
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 0.175, Median([]float64{0.20, 0.15}), 1e-15)
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{3, 1, 2})
	assert.Equal(t, 3, s.N)
	assert.Equal(t, 2.0, s.Mean)
	assert.Equal(t, 1.0, s.Std)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
}

func TestNormCDF(t *testing.T) {
	assert.InDelta(t, 0.5, NormCDF(0), 1e-15)
	assert.InDelta(t, 0.975002104851780, NormCDF(1.96), 1e-12)
	assert.InDelta(t, 1-NormCDF(1.3), NormCDF(-1.3), 1e-15)
	assert.InDelta(t, 0.398942280401433, NormPDF(0), 1e-12)
}

func TestClose(t *testing.T) {
	assert.True(t, Close(1.0, 1.0+5e-9, 1e-8, 0))
	assert.False(t, Close(1.0, 1.0+5e-8, 1e-8, 1e-9))
	assert.True(t, Close(1e6, 1e6+5e-4, 0, 1e-9))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(2))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
}
