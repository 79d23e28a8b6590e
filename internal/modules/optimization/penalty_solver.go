package optimization

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// penaltySolver is the primary solver. It folds the constraints into the
// objective as quadratic penalties and minimises with L-BFGS, tightening the
// penalty weight over a fixed schedule and warm starting each stage.
type penaltySolver struct{}

var penaltySchedule = []float64{1e2, 1e4, 1e6, 1e8}

func (penaltySolver) Name() string { return "lbfgs-penalty" }

func (penaltySolver) Solve(p *problem) ([]float64, error) {
	x := make([]float64, p.n)
	copy(x, p.start)

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	for _, mu := range penaltySchedule {
		problem := optimize.Problem{
			Func: func(w []float64) float64 {
				return p.objective(w) + mu*penalty(p.set, w)
			},
			Grad: func(grad, w []float64) {
				p.gradient(grad, w)
				addPenaltyGradient(grad, p.set, w, mu)
			},
		}

		settings := &optimize.Settings{
			GradientThreshold: 1e-9,
			MajorIterations:   p.maxIter,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-14,
				Relative:   1e-12,
				Iterations: 20,
			},
		}
		result, err := optimize.Minimize(problem, x, settings, &optimize.LBFGS{})
		switch {
		case err == nil && successStatuses[result.Status]:
		case result != nil && (errors.Is(err, optimize.ErrNoProgress) || errors.Is(err, optimize.ErrLinesearcherFailure)):
			// Stalled at floating point resolution; accept() judges the point.
		case err != nil:
			return nil, fmt.Errorf("penalty stage mu=%g: %w", mu, err)
		default:
			return nil, fmt.Errorf("penalty stage mu=%g did not converge: status=%v", mu, result.Status)
		}
		copy(x, result.X)
	}

	return x, nil
}

// penalty is Σ max(0,−w)² + Σ max(0,w−cap)² + max(0,Σw−L)².
func penalty(s feasibleSet, w []float64) float64 {
	var total float64
	for _, x := range w {
		if x < 0 {
			total += x * x
		}
		if over := x - s.cap; over > 0 {
			total += over * over
		}
	}
	if over := floats.Sum(w) - s.leverage; over > 0 {
		total += over * over
	}
	return total
}

func addPenaltyGradient(grad []float64, s feasibleSet, w []float64, mu float64) {
	over := math.Max(0, floats.Sum(w)-s.leverage)
	for i, x := range w {
		if x < 0 {
			grad[i] += 2 * mu * x
		}
		if d := x - s.cap; d > 0 {
			grad[i] += 2 * mu * d
		}
		grad[i] += 2 * mu * over
	}
}
