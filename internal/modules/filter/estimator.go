package filter

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/internal/modules/panel"
)

// Path is the output of one filter run over the full panel.
type Path struct {
	Assets []domain.AssetID
	Dates  []time.Time
	// Means holds the posterior weight vector for each date (rows) and
	// basket asset (columns).
	Means *mat.Dense
	// Predictions holds y_t forecast from the pre-update state at t, so it
	// only uses information available before observing y_t.
	Predictions []float64

	priorTraces []float64
	posterior   []*mat.SymDense
}

// Len returns the number of dates.
func (p *Path) Len() int { return len(p.Dates) }

// Weights returns the posterior weights on row i keyed by asset.
func (p *Path) Weights(i int) map[domain.AssetID]float64 {
	out := make(map[domain.AssetID]float64, len(p.Assets))
	for j, a := range p.Assets {
		out[a] = p.Means.At(i, j)
	}
	return out
}

// Latest returns the date and weights of the final row.
func (p *Path) Latest() (time.Time, map[domain.AssetID]float64, error) {
	if p.Len() == 0 {
		return time.Time{}, nil, fmt.Errorf("empty weight path")
	}
	last := p.Len() - 1
	return p.Dates[last], p.Weights(last), nil
}

// PredictionSeries returns the predictions as a dated series.
func (p *Path) PredictionSeries() (domain.Series, error) {
	return domain.NewSeries(p.Dates, p.Predictions)
}

// Estimator runs the filter across an aligned panel.
type Estimator struct {
	log zerolog.Logger
}

// NewEstimator creates a new dynamic weight estimator.
func NewEstimator(log zerolog.Logger) *Estimator {
	return &Estimator{log: log.With().Str("component", "dynamic_estimator").Logger()}
}

// Estimate filters every row of p in date order. The same run yields the
// weight path and the predictions for all windows; callers restrict to a
// window afterwards.
func (e *Estimator) Estimate(p *panel.Panel, schema panel.Schema, params Params) (*Path, error) {
	if err := schema.Conform(p); err != nil {
		return nil, err
	}
	X, y := schema.Design(p, panel.AllRows(p))

	path, err := Run(X, y, params)
	if err != nil {
		return nil, err
	}
	path.Assets = append([]domain.AssetID(nil), schema.Basket...)
	path.Dates = p.Dates()

	e.log.Info().
		Int("steps", path.Len()).
		Int("assets", len(path.Assets)).
		Float64("final_trace", trace(path.posterior[path.Len()-1])).
		Msg("Dynamic weights estimated")
	return path, nil
}

// Run is the filter recursion on raw arrays: for each row, predict, record
// the forecast from the predicted state, then update on y_t. Dates and
// Assets of the returned Path are left empty.
func Run(X *mat.Dense, y []float64, params Params) (*Path, error) {
	if X == nil {
		return nil, fmt.Errorf("no rows to filter")
	}
	T, n := X.Dims()
	if T != len(y) {
		return nil, fmt.Errorf("design has %d rows but target has %d", T, len(y))
	}

	f, err := NewFilter(n, params)
	if err != nil {
		return nil, err
	}

	path := &Path{
		Means:       mat.NewDense(T, n, nil),
		Predictions: make([]float64, T),
		priorTraces: make([]float64, T),
		posterior:   make([]*mat.SymDense, T),
	}

	for t := 0; t < T; t++ {
		h := X.RawRowView(t)

		f.Predict()
		path.priorTraces[t] = trace(f.cov)
		path.Predictions[t] = f.Forecast(h)

		if err := f.Update(h, y[t]); err != nil {
			return nil, fmt.Errorf("filter step %d: %w", t, err)
		}
		path.Means.SetRow(t, f.mean.RawVector().Data)
		path.posterior[t] = f.Covariance()
	}

	return path, nil
}
