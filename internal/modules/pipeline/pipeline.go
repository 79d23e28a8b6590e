// Package pipeline composes the estimation stages into a single run that
// returns an immutable Result.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/internal/modules/evaluation"
	"github.com/aristath/replica/internal/modules/filter"
	"github.com/aristath/replica/internal/modules/optimization"
	"github.com/aristath/replica/internal/modules/panel"
	"github.com/aristath/replica/internal/modules/prices"
	"github.com/aristath/replica/internal/utils"
)

// WindowRows counts the panel rows falling in each window.
type WindowRows struct {
	Train      int `json:"train"`
	Validation int `json:"validation"`
	Test       int `json:"test"`
}

// Result is everything one run produces. It is built once by Run and never
// modified; consumers must not mutate the slices or maps it holds.
type Result struct {
	Schema  panel.Schema
	Start   time.Time // first panel date
	End     time.Time // last panel date
	Rows    WindowRows
	Bounds  map[domain.AssetID]panel.Bounds
	Static  optimization.StaticResult
	Dynamic *filter.Path

	LatestDate    time.Time
	LatestWeights map[domain.AssetID]float64

	// Metrics scores the dynamic predictions on the test window;
	// StaticMetrics scores the static basket on the same rows.
	Metrics       evaluation.Metrics
	StaticMetrics evaluation.Metrics

	// LiveChart compares the dynamic synthetic NAV with the actual NAV;
	// BasketChart does the same for the static basket.
	LiveChart   evaluation.Comparison
	BasketChart evaluation.Comparison

	// Timings holds the wall time of each stage.
	Timings map[string]time.Duration
}

// Pipeline runs the stages in order: load, returns, align, window,
// winsorize, static solve, dynamic filter, evaluation.
type Pipeline struct {
	source    prices.TableSource
	solver    *optimization.StaticSolver
	estimator *filter.Estimator
	log       zerolog.Logger
}

// New creates a pipeline reading price tables from source.
func New(source prices.TableSource, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		source:    source,
		solver:    optimization.NewStaticSolver(log),
		estimator: filter.NewEstimator(log),
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one full estimation. Any stage failure aborts the run and no
// partial Result is returned.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	sw := utils.NewStopwatch("pipeline_run", p.log)

	batch := prices.NewBatch(p.source, cfg.Workers, p.log)
	assets := cfg.Schema.Assets()
	returns, err := batch.Returns(ctx, assets, cfg.DayFirst)
	if err != nil {
		return nil, err
	}

	sw.Lap("load")

	ordered := make([]domain.ReturnSeries, len(assets))
	for i, a := range assets {
		ordered[i] = returns[a]
	}
	raw, err := panel.Align(ordered)
	if err != nil {
		return nil, err
	}
	if err := cfg.Schema.Conform(raw); err != nil {
		return nil, err
	}

	trainRows := panel.Rows(raw, cfg.Windows.Train)
	fitRows := panel.Rows(raw, cfg.Windows.Train, cfg.Windows.Validation)
	testRows := panel.Rows(raw, cfg.Windows.Test)
	rows := WindowRows{
		Train:      len(trainRows),
		Validation: len(panel.Rows(raw, cfg.Windows.Validation)),
		Test:       len(testRows),
	}
	p.log.Debug().
		Int("panel_rows", raw.Len()).
		Int("train", rows.Train).
		Int("validation", rows.Validation).
		Int("test", rows.Test).
		Msg("Panel windowed")

	sw.Lap("align")

	clean, bounds, err := panel.Winsorize(raw, trainRows, cfg.WinsorLower, cfg.WinsorUpper)
	if err != nil {
		return nil, err
	}
	sw.Lap("winsorize")

	if len(fitRows) == 0 {
		return nil, &domain.DataError{Stage: domain.StageWindow, Reason: "train and validation windows have no rows"}
	}
	X, y := cfg.Schema.Design(clean, fitRows)
	static, err := p.solver.Solve(cfg.Schema.Basket, X, y, cfg.Static)
	if err != nil {
		return nil, err
	}
	sw.Lap("static")

	path, err := p.estimator.Estimate(clean, cfg.Schema, cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("dynamic estimation failed: %w", err)
	}
	latestDate, latestWeights, err := path.Latest()
	if err != nil {
		return nil, err
	}
	sw.Lap("dynamic")

	live, liveMetrics, err := p.score(clean, cfg, testRows, subset(path.Predictions, testRows))
	if err != nil {
		return nil, fmt.Errorf("dynamic evaluation failed: %w", err)
	}

	Xtest, _ := cfg.Schema.Design(clean, testRows)
	basket, staticMetrics, err := p.score(clean, cfg, testRows, static.Apply(Xtest))
	if err != nil {
		return nil, fmt.Errorf("static evaluation failed: %w", err)
	}
	sw.Lap("evaluate")

	result := &Result{
		Schema: panel.Schema{
			Target: cfg.Schema.Target,
			Basket: append([]domain.AssetID(nil), cfg.Schema.Basket...),
		},
		Start:         clean.Date(0),
		End:           clean.Date(clean.Len() - 1),
		Rows:          rows,
		Bounds:        bounds,
		Static:        static,
		Dynamic:       path,
		LatestDate:    latestDate,
		LatestWeights: latestWeights,
		Metrics:       liveMetrics,
		StaticMetrics: staticMetrics,
		LiveChart:     live,
		BasketChart:   basket,
		Timings:       sw.Durations(),
	}

	p.log.Info().
		Str("solver", static.Solver).
		Float64("te", liveMetrics.TrackingError).
		Float64("rmse", liveMetrics.RMSE).
		Float64("r2", liveMetrics.R2).
		Dur("duration", sw.Stop()).
		Msg("Pipeline run complete")

	return result, nil
}

// score evaluates predictions against the target on the test rows and builds
// the NAV comparison for both.
func (p *Pipeline) score(clean *panel.Panel, cfg Config, testRows []int, predicted []float64) (evaluation.Comparison, evaluation.Metrics, error) {
	dates := make([]time.Time, len(testRows))
	actual := make([]float64, len(testRows))
	for k, r := range testRows {
		dates[k] = clean.Date(r)
		actual[k] = clean.Value(r, cfg.Schema.Target)
	}

	actualSeries, err := domain.NewSeries(dates, actual)
	if err != nil {
		return evaluation.Comparison{}, evaluation.Metrics{}, err
	}
	predictedSeries, err := domain.NewSeries(dates, predicted)
	if err != nil {
		return evaluation.Comparison{}, evaluation.Metrics{}, err
	}

	metrics, err := evaluation.Evaluate(actualSeries, predictedSeries)
	if err != nil {
		return evaluation.Comparison{}, evaluation.Metrics{}, err
	}

	synthNav, err := evaluation.Nav(predictedSeries, cfg.NavBase)
	if err != nil {
		return evaluation.Comparison{}, evaluation.Metrics{}, err
	}
	actualNav, err := evaluation.Nav(actualSeries, cfg.NavBase)
	if err != nil {
		return evaluation.Comparison{}, evaluation.Metrics{}, err
	}
	cmp, err := evaluation.NewComparison(synthNav, actualNav)
	if err != nil {
		return evaluation.Comparison{}, evaluation.Metrics{}, err
	}
	return cmp, metrics, nil
}

func subset(values []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for k, r := range rows {
		out[k] = values[r]
	}
	return out
}
