// Package evaluation scores predicted returns against actual returns and
// converts return series into NAV curves for reporting.
package evaluation

import (
	"math"
	"time"

	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/pkg/formulas"
)

// MinObservations is the smallest number of valid pairs Evaluate accepts.
const MinObservations = 2

// Metrics summarises how well a predicted series tracks the actual one.
type Metrics struct {
	TrackingError float64 `json:"te"`
	RMSE          float64 `json:"rmse"`
	R2            float64 `json:"r2"`
	Observations  int     `json:"n"`
}

// Evaluate pairs actual and predicted by date, drops pairs where either side
// is NaN or infinite, and computes:
//
//	tracking error  sample std (N−1) of actual − predicted
//	RMSE            sqrt(mean((actual − predicted)²))
//	R²              1 − SSres/SStot around the mean of actual
//
// When SStot is zero R² is 1 for a perfect fit and 0 otherwise.
func Evaluate(actual, predicted domain.Series) (Metrics, error) {
	predByDate := make(map[time.Time]float64, predicted.Len())
	for i := 0; i < predicted.Len(); i++ {
		predByDate[predicted.Date(i)] = predicted.Value(i)
	}

	var truth, residuals []float64
	for i := 0; i < actual.Len(); i++ {
		p, ok := predByDate[actual.Date(i)]
		a := actual.Value(i)
		if !ok || !formulas.IsFinite(a) || !formulas.IsFinite(p) {
			continue
		}
		truth = append(truth, a)
		residuals = append(residuals, a-p)
	}

	n := len(residuals)
	if n < MinObservations {
		return Metrics{}, &domain.InsufficientDataError{Have: n, Need: MinObservations}
	}

	var ssRes float64
	for _, e := range residuals {
		ssRes += e * e
	}
	mean := formulas.Mean(truth)
	var ssTot float64
	for _, a := range truth {
		ssTot += (a - mean) * (a - mean)
	}

	var r2 float64
	switch {
	case ssTot > 0:
		r2 = 1 - ssRes/ssTot
	case ssRes == 0:
		r2 = 1
	}

	return Metrics{
		TrackingError: formulas.SampleStdDev(residuals),
		RMSE:          math.Sqrt(ssRes / float64(n)),
		R2:            r2,
		Observations:  n,
	}, nil
}
