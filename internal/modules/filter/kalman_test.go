package filter

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/internal/modules/panel"
)

var defaultParams = Params{ProcessNoise: 1e-4, ObservationNoise: 1e-5}

func randomBasket(seed int64, T, n int) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(T, n, nil)
	for i := 0; i < T; i++ {
		for j := 0; j < n; j++ {
			X.Set(i, j, 0.01*rng.NormFloat64())
		}
	}
	return X
}

func TestRun_FirstPredictionUsesEqualWeights(t *testing.T) {
	X := mat.NewDense(2, 3, []float64{
		0.03, -0.01, 0.01,
		0.02, 0.02, 0.02,
	})
	y := []float64{0.5, 0.1}

	path, err := Run(X, y, defaultParams)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, path.Predictions[0], 1e-15)
}

func TestRun_PredictionsUsePreUpdateState(t *testing.T) {
	X := randomBasket(1, 50, 3)
	y := make([]float64, 50)
	for i := range y {
		y[i] = floats.Dot(X.RawRowView(i), []float64{0.2, 0.5, 0.3})
	}

	path, err := Run(X, y, defaultParams)
	require.NoError(t, err)

	for t0 := 1; t0 < 50; t0++ {
		prev := path.Means.RawRowView(t0 - 1)
		assert.InDelta(t, floats.Dot(X.RawRowView(t0), prev), path.Predictions[t0], 1e-15)
	}
}

func TestRun_UpdateNeverIncreasesTrace(t *testing.T) {
	X := randomBasket(2, 200, 4)
	y := randomBasket(3, 200, 1).RawMatrix().Data

	path, err := Run(X, y, defaultParams)
	require.NoError(t, err)

	for i := range path.posterior {
		assert.LessOrEqual(t, trace(path.posterior[i]), path.priorTraces[i]+1e-12, "step %d", i)
	}
	// the first prior is identity plus one step of process noise
	assert.InDelta(t, 4*(1+defaultParams.ProcessNoise), path.priorTraces[0], 1e-12)
}

func TestRun_CovarianceStaysSymmetricPSD(t *testing.T) {
	X := randomBasket(4, 300, 3)
	y := randomBasket(5, 300, 1).RawMatrix().Data

	path, err := Run(X, y, Params{ProcessNoise: 0, ObservationNoise: 1e-6})
	require.NoError(t, err)

	var es mat.EigenSym
	last := path.posterior[len(path.posterior)-1]
	require.True(t, es.Factorize(last, false))
	for _, v := range es.Values(nil) {
		assert.GreaterOrEqual(t, v, -1e-15)
	}
}

func TestRun_RecoversConstantWeights(t *testing.T) {
	X := randomBasket(6, 1500, 2)
	truth := []float64{0.6, 0.4}
	y := make([]float64, 1500)
	for i := range y {
		y[i] = floats.Dot(X.RawRowView(i), truth)
	}

	path, err := Run(X, y, Params{ProcessNoise: 1e-6, ObservationNoise: 1e-6})
	require.NoError(t, err)

	final := path.Means.RawRowView(path.Means.RawMatrix().Rows - 1)
	assert.InDelta(t, 0.6, final[0], 0.05)
	assert.InDelta(t, 0.4, final[1], 0.05)
}

func TestRun_NoiseTargetIsUnpredictable(t *testing.T) {
	X := randomBasket(7, 1000, 3)
	rng := rand.New(rand.NewSource(8))
	y := make([]float64, 1000)
	for i := range y {
		y[i] = 0.0005 + 0.01*rng.NormFloat64()
	}

	path, err := Run(X, y, defaultParams)
	require.NoError(t, err)

	corr := stat.Correlation(path.Predictions[100:], y[100:], nil)
	assert.Less(t, math.Abs(corr), 0.15)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(nil, nil, defaultParams)
	assert.Error(t, err)

	X := randomBasket(9, 5, 2)
	_, err = Run(X, make([]float64, 4), defaultParams)
	assert.Error(t, err)

	_, err = Run(X, make([]float64, 5), Params{ProcessNoise: 1e-4, ObservationNoise: 0})
	assert.Error(t, err)

	_, err = Run(X, make([]float64, 5), Params{ProcessNoise: -1, ObservationNoise: 1})
	assert.Error(t, err)

	y := make([]float64, 5)
	y[2] = math.Inf(1)
	_, err = Run(X, y, defaultParams)
	assert.Error(t, err)
}

func TestFilter_UpdateRejectsWrongWidth(t *testing.T) {
	f, err := NewFilter(2, defaultParams)
	require.NoError(t, err)
	assert.Error(t, f.Update([]float64{1}, 0))

	_, err = NewFilter(0, defaultParams)
	assert.Error(t, err)
}

func TestFilter_UpdateRejectsNonFiniteRegressors(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		f, err := NewFilter(2, defaultParams)
		require.NoError(t, err)

		assert.Error(t, f.Update([]float64{0.01, bad}, 0.02))
		assert.Equal(t, []float64{0.5, 0.5}, f.Mean(), "state must be untouched")
	}
}

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func series(t *testing.T, asset domain.AssetID, values []float64) domain.ReturnSeries {
	t.Helper()
	points := make([]domain.Point, len(values))
	for i, v := range values {
		points[i] = domain.Point{Date: day(i), Value: v}
	}
	s, err := domain.NewReturnSeries(asset, points)
	require.NoError(t, err)
	return s
}

func TestEstimator_Estimate(t *testing.T) {
	X := randomBasket(10, 30, 2)
	gold := mat.Col(nil, 0, X)
	copper := mat.Col(nil, 1, X)
	target := make([]float64, 30)
	for i := range target {
		target[i] = 0.5*gold[i] + 0.5*copper[i]
	}

	p, err := panel.Align([]domain.ReturnSeries{
		series(t, "silver", target),
		series(t, "gold", gold),
		series(t, "copper", copper),
	})
	require.NoError(t, err)

	schema := panel.Schema{Target: "silver", Basket: []domain.AssetID{"gold", "copper"}}
	path, err := NewEstimator(zerolog.Nop()).Estimate(p, schema, defaultParams)
	require.NoError(t, err)

	assert.Equal(t, 30, path.Len())
	assert.Equal(t, []domain.AssetID{"gold", "copper"}, path.Assets)

	date, latest, err := path.Latest()
	require.NoError(t, err)
	assert.Equal(t, day(29), date)
	assert.Len(t, latest, 2)
	assert.Equal(t, path.Means.At(29, 1), latest["copper"])

	preds, err := path.PredictionSeries()
	require.NoError(t, err)
	assert.Equal(t, 30, preds.Len())

	// A basket asset missing from the panel fails schema validation.
	bad := panel.Schema{Target: "silver", Basket: []domain.AssetID{"gold", "zinc"}}
	_, err = NewEstimator(zerolog.Nop()).Estimate(p, bad, defaultParams)
	assert.True(t, domain.IsDataError(err))
}
