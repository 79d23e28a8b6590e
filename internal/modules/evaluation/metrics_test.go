package evaluation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/replica/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func series(t *testing.T, dates []string, values []float64) domain.Series {
	t.Helper()
	ds := make([]time.Time, len(dates))
	for i, d := range dates {
		ds[i] = day(d)
	}
	s, err := domain.NewSeries(ds, values)
	require.NoError(t, err)
	return s
}

func TestEvaluate_KnownValues(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}
	actual := series(t, dates, []float64{1, 2, 3, 4})
	predicted := series(t, dates, []float64{1.5, 1.5, 3.5, 3.5})

	m, err := Evaluate(actual, predicted)
	require.NoError(t, err)

	// residuals -0.5, 0.5, -0.5, 0.5: mean 0, sample variance 1/3
	assert.InDelta(t, math.Sqrt(1.0/3.0), m.TrackingError, 1e-12)
	assert.InDelta(t, 0.5, m.RMSE, 1e-12)
	// SSres 1, SStot 5
	assert.InDelta(t, 0.8, m.R2, 1e-12)
	assert.Equal(t, 4, m.Observations)
}

func TestEvaluate_PairsByDateAndDropsNaN(t *testing.T) {
	actual := series(t,
		[]string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"},
		[]float64{1, math.NaN(), 3, 4, 5})
	predicted := series(t,
		[]string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05", "2024-01-06"},
		[]float64{1, 2, math.NaN(), 5, 9})

	m, err := Evaluate(actual, predicted)
	require.NoError(t, err)
	// only 01-01 and 01-05 pair up cleanly, both exact
	assert.Equal(t, 2, m.Observations)
	assert.Zero(t, m.RMSE)
	assert.Equal(t, 1.0, m.R2)
}

func TestEvaluate_InsufficientData(t *testing.T) {
	one := series(t, []string{"2024-01-01"}, []float64{0.01})
	_, err := Evaluate(one, one)
	require.Error(t, err)

	var ie *domain.InsufficientDataError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Have)
	assert.Equal(t, 2, ie.Need)

	_, err = Evaluate(domain.Series{}, domain.Series{})
	assert.ErrorAs(t, err, &ie)
}

func TestEvaluate_ConstantActual(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	actual := series(t, dates, []float64{2, 2, 2})

	m, err := Evaluate(actual, series(t, dates, []float64{2, 2, 2}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.R2)

	m, err = Evaluate(actual, series(t, dates, []float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.R2)
}

func TestEvaluate_MeanPredictionScoresZero(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}
	actual := series(t, dates, []float64{0.01, -0.02, 0.03, -0.02})
	flat := series(t, dates, []float64{0, 0, 0, 0})

	m, err := Evaluate(actual, flat)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, m.R2, 1e-12)
}
