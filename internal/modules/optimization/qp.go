package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// feasibilityTol bounds how far a solver's answer may sit outside the
// feasible set before it is projected back and accepted.
const feasibilityTol = 1e-6

// problem is the intercept-free form of the ridge regression:
//
//	minimize   wᵀQw − 2bᵀw
//	subject to 0 ≤ w ≤ cap, Σw ≤ leverage
//
// Q and b are divided by scale (the largest eigenvalue of the unscaled Q) so
// that solver tolerances do not depend on the magnitude of the returns.
type problem struct {
	n       int
	Q       *mat.SymDense
	b       []float64
	scale   float64
	set     feasibleSet
	maxIter int
	start   []float64
	xMean   []float64
	yMean   float64
}

// newProblem centres X and y, which removes the free intercept exactly, and
// builds the scaled quadratic.
func newProblem(X *mat.Dense, y []float64, params StaticParams) (*problem, error) {
	T, n := X.Dims()
	if T != len(y) {
		return nil, fmt.Errorf("design has %d rows but target has %d", T, len(y))
	}
	if T == 0 || n == 0 {
		return nil, fmt.Errorf("empty design matrix (%dx%d)", T, n)
	}
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("target contains a non-finite value")
		}
	}

	xMean := make([]float64, n)
	for j := 0; j < n; j++ {
		col := mat.Col(nil, j, X)
		for _, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("basket column %d contains a non-finite value", j)
			}
		}
		xMean[j] = floats.Sum(col) / float64(T)
	}
	yMean := floats.Sum(y) / float64(T)

	Xc := mat.NewDense(T, n, nil)
	Xc.Apply(func(i, j int, v float64) float64 { return v - xMean[j] }, X)
	yc := make([]float64, T)
	for i, v := range y {
		yc[i] = v - yMean
	}

	Q := mat.NewSymDense(n, nil)
	Q.SymOuterK(1/float64(T), Xc.T())
	for i := 0; i < n; i++ {
		Q.SetSym(i, i, Q.At(i, i)+params.Ridge)
	}

	var bv mat.VecDense
	bv.MulVec(Xc.T(), mat.NewVecDense(T, yc))
	b := make([]float64, n)
	for i := range b {
		b[i] = bv.AtVec(i) / float64(T)
	}

	scale, err := largestEigenvalue(Q)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = 1
	}
	Q.ScaleSym(1/scale, Q)
	floats.Scale(1/scale, b)

	set := feasibleSet{cap: params.Cap, leverage: params.Leverage}
	start := make([]float64, n)
	for i := range start {
		start[i] = math.Min(params.Cap, params.Leverage/float64(n))
	}

	return &problem{
		n:       n,
		Q:       Q,
		b:       b,
		scale:   scale,
		set:     set,
		maxIter: params.MaxIterations,
		start:   start,
		xMean:   xMean,
		yMean:   yMean,
	}, nil
}

func largestEigenvalue(Q *mat.SymDense) (float64, error) {
	var es mat.EigenSym
	if ok := es.Factorize(Q, false); !ok {
		return 0, fmt.Errorf("eigen decomposition of the normal matrix failed")
	}
	vals := es.Values(nil)
	return vals[len(vals)-1], nil
}

// objective returns wᵀQw − 2bᵀw.
func (p *problem) objective(w []float64) float64 {
	x := mat.NewVecDense(p.n, w)
	return mat.Inner(x, p.Q, x) - 2*floats.Dot(p.b, w)
}

// gradient writes 2Qw − 2b into dst.
func (p *problem) gradient(dst, w []float64) {
	var qw mat.VecDense
	qw.MulVec(p.Q, mat.NewVecDense(p.n, w))
	for i := range dst {
		dst[i] = 2*qw.AtVec(i) - 2*p.b[i]
	}
}

// intercept is the constant term implied by weights w on the original data.
func (p *problem) intercept(w []float64) float64 {
	return p.yMean - floats.Dot(p.xMean, w)
}

// feasibleSet is {w : 0 ≤ w_i ≤ cap, Σw ≤ leverage}.
type feasibleSet struct {
	cap      float64
	leverage float64
}

// project writes the Euclidean projection of v onto the set into dst.
// Clipping to the box is exact when the sum constraint is slack; otherwise the
// sum constraint is active and the multiplier τ solving
// Σ clip(v_i − τ, 0, cap) = leverage is found by bisection.
func (s feasibleSet) project(dst, v []float64) {
	clip := func(shift float64) float64 {
		sum := 0.0
		for i, x := range v {
			dst[i] = math.Max(0, math.Min(s.cap, x-shift))
			sum += dst[i]
		}
		return sum
	}

	if clip(0) <= s.leverage {
		return
	}

	lo, hi := 0.0, floats.Max(v)
	for i := 0; i < 200 && hi-lo > 1e-15*math.Max(1, hi); i++ {
		mid := 0.5 * (lo + hi)
		if clip(mid) > s.leverage {
			lo = mid
		} else {
			hi = mid
		}
	}
	clip(hi)
}

// violation returns the largest amount by which w breaks any constraint.
func (s feasibleSet) violation(w []float64) float64 {
	worst := floats.Sum(w) - s.leverage
	for _, x := range w {
		worst = math.Max(worst, -x)
		worst = math.Max(worst, x-s.cap)
	}
	return math.Max(worst, 0)
}

// accept checks a solver's answer and snaps it onto the feasible set.
func (p *problem) accept(w []float64) ([]float64, error) {
	if len(w) != p.n {
		return nil, fmt.Errorf("solver returned %d weights, want %d", len(w), p.n)
	}
	for _, x := range w {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("solver returned a non-finite weight")
		}
	}
	if v := p.set.violation(w); v > feasibilityTol {
		return nil, fmt.Errorf("solution violates constraints by %.3g", v)
	}
	out := make([]float64, p.n)
	p.set.project(out, w)
	return out, nil
}
