package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// gradientTol is the fixed-point residual ‖w − P(w − ∇f(w)/Lip)‖∞ at which
// the projected gradient iteration stops.
const gradientTol = 1e-10

// projectedGradientSolver is the fallback: accelerated projected gradient
// (FISTA) with an exact projection and a fixed 1/Lipschitz step. Slower than
// the primary but it never leaves the feasible set and needs no line search.
type projectedGradientSolver struct{}

func (projectedGradientSolver) Name() string { return "projected-gradient" }

func (projectedGradientSolver) Solve(p *problem) ([]float64, error) {
	// Q is scaled so its largest eigenvalue is 1 (or the problem is flat),
	// making the gradient 2-Lipschitz.
	step := 0.5

	n := p.n
	x := make([]float64, n)
	p.set.project(x, p.start)
	prev := make([]float64, n)
	copy(prev, x)
	yk := make([]float64, n)
	copy(yk, x)
	grad := make([]float64, n)
	trial := make([]float64, n)
	resid := make([]float64, n)
	t := 1.0

	for k := 0; k < p.maxIter; k++ {
		p.gradient(grad, yk)
		floats.AddScaledTo(trial, yk, -step, grad)
		copy(prev, x)
		p.set.project(x, trial)

		if floats.HasNaN(x) {
			return nil, fmt.Errorf("iterate became NaN at step %d", k)
		}

		// Residual at the new point decides convergence.
		p.gradient(grad, x)
		floats.AddScaledTo(trial, x, -step, grad)
		p.set.project(resid, trial)
		if floats.Distance(resid, x, math.Inf(1)) < gradientTol {
			return x, nil
		}

		tNext := 0.5 * (1 + math.Sqrt(1+4*t*t))
		momentum := (t - 1) / tNext
		for i := range yk {
			yk[i] = x[i] + momentum*(x[i]-prev[i])
		}
		t = tNext

		// Restart momentum when it stops decreasing the objective.
		if p.objective(x) > p.objective(prev) {
			copy(yk, x)
			t = 1
		}
	}

	return nil, fmt.Errorf("no convergence within %d iterations", p.maxIter)
}
