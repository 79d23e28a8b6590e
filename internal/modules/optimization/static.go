// Package optimization solves the static replicating weights: a ridge
// regression with an intercept, non-negative capped weights and a leverage
// cap on their sum.
package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/replica/internal/domain"
)

// StaticParams are the solver inputs. None of them has a default.
type StaticParams struct {
	Leverage      float64 // upper bound on Σw
	Cap           float64 // upper bound on each w_i
	Ridge         float64 // λ in λ‖w‖²
	MaxIterations int     // per solver
}

// Validate rejects parameter sets with an empty feasible region or no
// iteration budget.
func (p StaticParams) Validate() error {
	switch {
	case math.IsNaN(p.Leverage) || p.Leverage < 0:
		return fmt.Errorf("leverage cap must be >= 0, got %v", p.Leverage)
	case math.IsNaN(p.Cap) || p.Cap < 0:
		return fmt.Errorf("weight cap must be >= 0, got %v", p.Cap)
	case math.IsNaN(p.Ridge) || p.Ridge < 0:
		return fmt.Errorf("ridge must be >= 0, got %v", p.Ridge)
	case p.MaxIterations <= 0:
		return fmt.Errorf("max iterations must be positive, got %d", p.MaxIterations)
	}
	return nil
}

// StaticResult holds the solved weights. The intercept used during fitting is
// not part of the result.
type StaticResult struct {
	Assets  []domain.AssetID
	Vector  []float64 // same order as Assets
	Solver  string    // name of the solver that produced Vector
	Weights map[domain.AssetID]float64
}

// Weight returns the weight of asset, 0 when the asset is not in the basket.
func (r StaticResult) Weight(asset domain.AssetID) float64 {
	return r.Weights[asset]
}

type qpSolver interface {
	Name() string
	Solve(p *problem) ([]float64, error)
}

// StaticSolver runs the primary solver and, on any failure, the fallback.
type StaticSolver struct {
	primary  qpSolver
	fallback qpSolver
	log      zerolog.Logger
}

// NewStaticSolver creates a solver using L-BFGS with penalty continuation,
// falling back to accelerated projected gradient.
func NewStaticSolver(log zerolog.Logger) *StaticSolver {
	return &StaticSolver{
		primary:  penaltySolver{},
		fallback: projectedGradientSolver{},
		log:      log.With().Str("component", "static_solver").Logger(),
	}
}

// Solve fits weights for the basket columns of X against y.
//
// Returns *domain.SolverError when both solvers fail; the caller never gets
// a default or zero vector in that case.
func (s *StaticSolver) Solve(assets []domain.AssetID, X *mat.Dense, y []float64, params StaticParams) (StaticResult, error) {
	if err := params.Validate(); err != nil {
		return StaticResult{}, err
	}
	if X == nil {
		return StaticResult{}, fmt.Errorf("no rows to fit")
	}
	if _, n := X.Dims(); n != len(assets) {
		return StaticResult{}, fmt.Errorf("design has %d columns but %d assets", n, len(assets))
	}

	prob, err := newProblem(X, y, params)
	if err != nil {
		return StaticResult{}, fmt.Errorf("failed to build static problem: %w", err)
	}

	var attempts []domain.SolverAttempt
	for _, solver := range []qpSolver{s.primary, s.fallback} {
		w, err := solver.Solve(prob)
		if err == nil {
			w, err = prob.accept(w)
		}
		if err != nil {
			s.log.Warn().Err(err).Str("solver", solver.Name()).Msg("Static solve attempt failed")
			attempts = append(attempts, domain.SolverAttempt{Solver: solver.Name(), Err: err})
			continue
		}

		weights := make(map[domain.AssetID]float64, len(assets))
		for i, a := range assets {
			weights[a] = w[i]
		}
		s.log.Info().
			Str("solver", solver.Name()).
			Int("assets", len(assets)).
			Float64("intercept", prob.intercept(w)).
			Msg("Static weights solved")

		return StaticResult{
			Assets:  append([]domain.AssetID(nil), assets...),
			Vector:  w,
			Solver:  solver.Name(),
			Weights: weights,
		}, nil
	}

	return StaticResult{}, &domain.SolverError{Attempts: attempts}
}

// Apply returns X·w for every row of X, without the intercept.
func (r StaticResult) Apply(X *mat.Dense) []float64 {
	if X == nil {
		return nil
	}
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(len(r.Vector), r.Vector))
	return out.RawVector().Data
}
