// Package filter estimates time-varying replicating weights with a Kalman
// filter whose state is the weight vector itself, following a random walk.
package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Params are the fixed noise levels of the state-space model.
type Params struct {
	ProcessNoise     float64 // q: w_t = w_{t-1} + ε, ε ~ N(0, qI)
	ObservationNoise float64 // r: y_t = h_t·w_t + η, η ~ N(0, r)
}

// Validate requires q >= 0 and r > 0.
func (p Params) Validate() error {
	if math.IsNaN(p.ProcessNoise) || math.IsInf(p.ProcessNoise, 0) || p.ProcessNoise < 0 {
		return fmt.Errorf("process noise must be a finite value >= 0, got %v", p.ProcessNoise)
	}
	if math.IsNaN(p.ObservationNoise) || math.IsInf(p.ObservationNoise, 0) || p.ObservationNoise <= 0 {
		return fmt.Errorf("observation noise must be a finite value > 0, got %v", p.ObservationNoise)
	}
	return nil
}

// Filter is the recursive state of one run. It starts from equal weights and
// identity covariance. A Filter is not safe for concurrent use.
type Filter struct {
	n    int
	q, r float64
	mean *mat.VecDense
	cov  *mat.SymDense
}

// NewFilter creates a filter over n basket assets.
func NewFilter(n int, params Params) (*Filter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("filter needs at least one asset, got %d", n)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	mean := mat.NewVecDense(n, nil)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		mean.SetVec(i, 1/float64(n))
		cov.SetSym(i, i, 1)
	}
	return &Filter{n: n, q: params.ProcessNoise, r: params.ObservationNoise, mean: mean, cov: cov}, nil
}

// Predict applies the random-walk transition: the mean is unchanged and the
// covariance grows by qI.
func (f *Filter) Predict() {
	for i := 0; i < f.n; i++ {
		f.cov.SetSym(i, i, f.cov.At(i, i)+f.q)
	}
}

// Forecast returns h·w for the current mean. Called between Predict and
// Update it is the one-step-ahead prediction.
func (f *Filter) Forecast(h []float64) float64 {
	return floats.Dot(h, f.mean.RawVector().Data)
}

// Update folds the observation y with regressors h into the state, using the
// Joseph form so the covariance stays symmetric positive semi-definite.
func (f *Filter) Update(h []float64, y float64) error {
	if len(h) != f.n {
		return fmt.Errorf("observation has %d regressors, filter has %d", len(h), f.n)
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return fmt.Errorf("non-finite observation")
	}
	for i, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite regressor %d: %v", i, v)
		}
	}

	hv := mat.NewVecDense(f.n, h)

	var ph mat.VecDense
	ph.MulVec(f.cov, hv)
	s := mat.Dot(hv, &ph) + f.r
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return fmt.Errorf("innovation variance is %v", s)
	}

	var gain mat.VecDense
	gain.ScaleVec(1/s, &ph)

	innovation := y - mat.Dot(hv, f.mean)
	f.mean.AddScaledVec(f.mean, innovation, &gain)

	// A = I − K·hᵀ; P = A·P⁻·Aᵀ + r·K·Kᵀ
	a := mat.NewDense(f.n, f.n, nil)
	a.Outer(-1, &gain, hv)
	for i := 0; i < f.n; i++ {
		a.Set(i, i, a.At(i, i)+1)
	}
	var ap, apa mat.Dense
	ap.Mul(a, f.cov)
	apa.Mul(&ap, a.T())

	next := mat.NewSymDense(f.n, nil)
	for i := 0; i < f.n; i++ {
		for j := i; j < f.n; j++ {
			v := 0.5*(apa.At(i, j)+apa.At(j, i)) + f.r*gain.AtVec(i)*gain.AtVec(j)
			next.SetSym(i, j, v)
		}
	}
	f.cov = next
	return nil
}

// Mean returns a copy of the current state mean.
func (f *Filter) Mean() []float64 {
	out := make([]float64, f.n)
	copy(out, f.mean.RawVector().Data)
	return out
}

// Covariance returns a copy of the current state covariance.
func (f *Filter) Covariance() *mat.SymDense {
	out := mat.NewSymDense(f.n, nil)
	out.CopySym(f.cov)
	return out
}

func trace(m *mat.SymDense) float64 {
	n := m.SymmetricDim()
	var t float64
	for i := 0; i < n; i++ {
		t += m.At(i, i)
	}
	return t
}
