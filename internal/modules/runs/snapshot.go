// Package runs persists pipeline results and serves the latest one.
package runs

import (
	"time"

	"github.com/google/uuid"

	"github.com/aristath/replica/internal/modules/evaluation"
	"github.com/aristath/replica/internal/modules/pipeline"
)

// WeightRow is one date of the dynamic weight path.
type WeightRow struct {
	Date    time.Time `msgpack:"date"`
	Weights []float64 `msgpack:"weights"` // ordered as Snapshot.Basket
}

// Bounds are the winsorize thresholds applied to one column.
type Bounds struct {
	Lower float64 `msgpack:"lower"`
	Upper float64 `msgpack:"upper"`
}

// Snapshot is the storable form of a pipeline Result: plain values only, no
// matrices, keyed by asset name.
type Snapshot struct {
	Target        string                `msgpack:"target"`
	Basket        []string              `msgpack:"basket"`
	Start         time.Time             `msgpack:"start"`
	End           time.Time             `msgpack:"end"`
	Rows          pipeline.WindowRows   `msgpack:"rows"`
	Bounds        map[string]Bounds     `msgpack:"bounds"`
	Solver        string                `msgpack:"solver"`
	StaticWeights map[string]float64    `msgpack:"static_weights"`
	LatestDate    time.Time             `msgpack:"latest_date"`
	LatestWeights map[string]float64    `msgpack:"latest_weights"`
	History       []WeightRow           `msgpack:"history"`
	Metrics       evaluation.Metrics    `msgpack:"metrics"`
	StaticMetrics evaluation.Metrics    `msgpack:"static_metrics"`
	LiveChart     evaluation.Comparison `msgpack:"live_chart"`
	BasketChart   evaluation.Comparison `msgpack:"basket_chart"`
	TimingsMS     map[string]int64      `msgpack:"timings_ms"`
}

// Run is one stored pipeline execution.
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Snapshot  Snapshot
}

// NewSnapshot flattens a pipeline result.
func NewSnapshot(res *pipeline.Result) Snapshot {
	basket := make([]string, len(res.Schema.Basket))
	for i, a := range res.Schema.Basket {
		basket[i] = string(a)
	}

	bounds := make(map[string]Bounds, len(res.Bounds))
	for a, b := range res.Bounds {
		bounds[string(a)] = Bounds{Lower: b.Lower, Upper: b.Upper}
	}

	static := make(map[string]float64, len(res.Static.Weights))
	for a, w := range res.Static.Weights {
		static[string(a)] = w
	}

	latest := make(map[string]float64, len(res.LatestWeights))
	for a, w := range res.LatestWeights {
		latest[string(a)] = w
	}

	timings := make(map[string]int64, len(res.Timings))
	for stage, d := range res.Timings {
		timings[stage] = d.Milliseconds()
	}

	history := make([]WeightRow, res.Dynamic.Len())
	for i := range history {
		history[i] = WeightRow{
			Date:    res.Dynamic.Dates[i],
			Weights: append([]float64(nil), res.Dynamic.Means.RawRowView(i)...),
		}
	}

	return Snapshot{
		Target:        string(res.Schema.Target),
		Basket:        basket,
		Start:         res.Start,
		End:           res.End,
		Rows:          res.Rows,
		Bounds:        bounds,
		Solver:        res.Static.Solver,
		StaticWeights: static,
		LatestDate:    res.LatestDate,
		LatestWeights: latest,
		History:       history,
		Metrics:       res.Metrics,
		StaticMetrics: res.StaticMetrics,
		LiveChart:     res.LiveChart,
		BasketChart:   res.BasketChart,
		TimingsMS:     timings,
	}
}

// utc rewrites every timestamp in UTC. Decoded timestamps come back in the
// local zone, which would move calendar days when formatted.
func (s *Snapshot) utc() {
	s.Start = s.Start.UTC()
	s.End = s.End.UTC()
	s.LatestDate = s.LatestDate.UTC()
	for i := range s.History {
		s.History[i].Date = s.History[i].Date.UTC()
	}
	for _, c := range []*evaluation.Comparison{&s.LiveChart, &s.BasketChart} {
		for i := range c.Dates {
			c.Dates[i] = c.Dates[i].UTC()
		}
	}
}
