package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewPriceSeries_Valid(t *testing.T) {
	points := []Point{{day("2024-01-02"), 10}, {day("2024-01-03"), 11}}
	s, err := NewPriceSeries("gold", points)
	require.NoError(t, err)

	assert.Equal(t, AssetID("gold"), s.Asset())
	assert.Equal(t, 2, s.Len())

	// the series owns its copy
	points[0].Value = -1
	assert.Equal(t, 10.0, s.At(0).Value)
	out := s.Points()
	out[1].Value = 99
	assert.Equal(t, 11.0, s.At(1).Value)
}

func TestNewPriceSeries_Rejects(t *testing.T) {
	testCases := []struct {
		name   string
		points []Point
	}{
		{"empty", nil},
		{"zero price", []Point{{day("2024-01-02"), 0}}},
		{"nan price", []Point{{day("2024-01-02"), math.NaN()}}},
		{"inf price", []Point{{day("2024-01-02"), math.Inf(1)}}},
		{"duplicate date", []Point{{day("2024-01-02"), 1}, {day("2024-01-02"), 2}}},
		{"unsorted", []Point{{day("2024-01-03"), 1}, {day("2024-01-02"), 2}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPriceSeries("x", tc.points)
			require.Error(t, err)
			assert.True(t, IsDataError(err))
		})
	}
}

func TestNewReturnSeries_AllowsEmptyRejectsNaN(t *testing.T) {
	s, err := NewReturnSeries("x", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	_, err = NewReturnSeries("x", []Point{{day("2024-01-02"), math.NaN()}})
	assert.True(t, IsDataError(err))
}

func TestNewSeries(t *testing.T) {
	s, err := NewSeries([]time.Time{day("2024-01-02"), day("2024-01-03")}, []float64{1, math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.True(t, math.IsNaN(s.Value(1)))

	_, err = NewSeries([]time.Time{day("2024-01-02")}, nil)
	assert.Error(t, err)

	_, err = NewSeries([]time.Time{day("2024-01-02"), day("2024-01-02")}, []float64{1, 2})
	assert.Error(t, err)
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	got := Day(time.Date(2024, 3, 9, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), got)
}

func TestSolverError_Unwrap(t *testing.T) {
	sentinel := errors.New("did not converge")
	err := fmt.Errorf("fit: %w", &SolverError{Attempts: []SolverAttempt{
		{Solver: "lbfgs", Err: sentinel},
		{Solver: "projected-gradient", Err: errors.New("iteration limit")},
	}})

	var se *SolverError
	require.True(t, errors.As(err, &se))
	assert.Len(t, se.Attempts, 2)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "lbfgs: did not converge")
}

func TestInsufficientDataError(t *testing.T) {
	err := &InsufficientDataError{Have: 1, Need: 2}
	assert.Contains(t, err.Error(), "have 1")
}
