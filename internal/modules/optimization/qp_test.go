package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestFeasibleSet_Project(t *testing.T) {
	s := feasibleSet{cap: 0.6, leverage: 1}
	testCases := []struct {
		name     string
		in       []float64
		expected []float64
	}{
		{"inside", []float64{0.2, 0.3, 0.1}, []float64{0.2, 0.3, 0.1}},
		{"box only", []float64{-0.5, 0.7, 0.1}, []float64{0, 0.6, 0.1}},
		{"sum active", []float64{0.8, 0.8, -0.1}, []float64{0.5, 0.5, 0}},
		{"cap and sum active", []float64{0.9, 0.5, 0.4}, []float64{0.6, 0.25, 0.15}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := make([]float64, len(tc.in))
			s.project(out, tc.in)
			for i := range out {
				assert.InDelta(t, tc.expected[i], out[i], 1e-9)
			}
			assert.LessOrEqual(t, s.violation(out), 1e-12)
		})
	}
}

func TestFeasibleSet_Violation(t *testing.T) {
	s := feasibleSet{cap: 0.5, leverage: 1}
	assert.Zero(t, s.violation([]float64{0.5, 0.5}))
	assert.InDelta(t, 0.1, s.violation([]float64{-0.1, 0.2}), 1e-12)
	assert.InDelta(t, 0.2, s.violation([]float64{0.7, 0.2}), 1e-12)
	assert.InDelta(t, 0.2, s.violation([]float64{0.4, 0.4, 0.4}), 1e-12)
}

func TestProblem_MatchesGridSearch(t *testing.T) {
	X := basketReturns(21, 300, 2)
	y := combine(22, X, []float64{0.8, 0.6}, 0.001, 0.003)
	prob, err := newProblem(X, y, params(1, 0.7, 1e-5))
	require.NoError(t, err)

	best := math.Inf(1)
	for a := 0.0; a <= 0.7+1e-12; a += 0.001 {
		for b := 0.0; b <= 0.7+1e-12 && a+b <= 1+1e-12; b += 0.001 {
			best = math.Min(best, prob.objective([]float64{a, b}))
		}
	}

	w, err := projectedGradientSolver{}.Solve(prob)
	require.NoError(t, err)
	w, err = prob.accept(w)
	require.NoError(t, err)
	assert.LessOrEqual(t, prob.objective(w), best+1e-9)
}

func TestPenaltySolver_AgreesWithFallbackInInterior(t *testing.T) {
	X := basketReturns(31, 400, 2)
	y := combine(32, X, []float64{0.3, 0.2}, 0, 0.001)
	prob, err := newProblem(X, y, params(1, 1, 1e-6))
	require.NoError(t, err)

	primary, err := penaltySolver{}.Solve(prob)
	require.NoError(t, err)
	fallback, err := projectedGradientSolver{}.Solve(prob)
	require.NoError(t, err)

	assert.True(t, floats.EqualApprox(primary, fallback, 1e-5), "primary=%v fallback=%v", primary, fallback)
}

func TestProblem_Intercept(t *testing.T) {
	X := basketReturns(41, 200, 1)
	y := combine(42, X, []float64{0.5}, 0.002, 0)
	prob, err := newProblem(X, y, params(1, 1, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.002, prob.intercept([]float64{0.5}), 1e-12)
}

func TestProjectedGradient_IterationLimit(t *testing.T) {
	X := basketReturns(51, 200, 3)
	y := combine(52, X, []float64{0.5, 0.4, 0.3}, 0, 0.01)
	p := params(1, 1, 0)
	p.MaxIterations = 1
	prob, err := newProblem(X, y, p)
	require.NoError(t, err)

	_, err = projectedGradientSolver{}.Solve(prob)
	assert.Error(t, err)
}
