package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestSampleStdDev(t *testing.T) {
	// var with N-1 = ((1.5²+0.5²)·2)/3 = 5/3
	assert.InDelta(t, math.Sqrt(5.0/3.0), SampleStdDev([]float64{1, 2, 3, 4}), 1e-12)
	assert.True(t, math.IsNaN(SampleStdDev([]float64{1})))
}

func TestQuantile_LinearInterpolation(t *testing.T) {
	data := []float64{4, 1, 3, 2, 5}

	testCases := []struct {
		p        float64
		expected float64
	}{
		{0, 1},
		{1, 5},
		{0.5, 3},
		{0.25, 2},
		{0.1, 1.4},
		{0.99, 4.96},
	}

	for _, tc := range testCases {
		assert.InDelta(t, tc.expected, Quantile(tc.p, data), 1e-12, "p=%v", tc.p)
	}

	// input untouched
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, data)
}

func TestQuantile_Degenerate(t *testing.T) {
	assert.True(t, math.IsNaN(Quantile(0.5, nil)))
	assert.True(t, math.IsNaN(Quantile(1.5, []float64{1})))
	assert.Equal(t, 7.0, Quantile(0.3, []float64{7}))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(0))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
}

func TestLogAndSimpleReturns(t *testing.T) {
	r := LogReturn(100, 110)
	assert.InDelta(t, math.Log(1.1), r, 1e-15)
	assert.InDelta(t, 0.1, SimpleFromLog(r), 1e-12)
	assert.Equal(t, 2.0, Clip(3, -1, 2))
	assert.Equal(t, -1.0, Clip(-3, -1, 2))
}
