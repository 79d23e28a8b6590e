// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"math"
	"time"
)

// AssetID identifies one asset column (target or basket member).
type AssetID string

// Point is one dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// Day truncates t to a UTC calendar day. All series are keyed by Day values
// so joins compare calendar dates, never clock times or locations.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PriceSeries is a date-sorted, duplicate-free series of strictly positive prices.
// Construct it with NewPriceSeries; it is never mutated afterwards.
type PriceSeries struct {
	asset  AssetID
	points []Point
}

// NewPriceSeries validates points and returns an immutable PriceSeries.
// Dates must be strictly increasing and every price finite and > 0.
func NewPriceSeries(asset AssetID, points []Point) (PriceSeries, error) {
	if len(points) == 0 {
		return PriceSeries{}, &DataError{Stage: StageLoad, Asset: asset, Reason: "price series is empty"}
	}
	if err := checkPoints(points, func(v float64) bool { return v > 0 && !math.IsInf(v, 0) }); err != nil {
		return PriceSeries{}, &DataError{Stage: StageLoad, Asset: asset, Reason: err.Error()}
	}
	return PriceSeries{asset: asset, points: clonePoints(points)}, nil
}

// Asset returns the asset identifier.
func (s PriceSeries) Asset() AssetID { return s.asset }

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.points) }

// At returns the i-th observation.
func (s PriceSeries) At(i int) Point { return s.points[i] }

// Points returns a copy of the observations.
func (s PriceSeries) Points() []Point { return clonePoints(s.points) }

// ReturnSeries is a date-sorted series of finite log returns.
// It may be empty (a single-price series has no returns).
type ReturnSeries struct {
	asset  AssetID
	points []Point
}

// NewReturnSeries validates points and returns an immutable ReturnSeries.
func NewReturnSeries(asset AssetID, points []Point) (ReturnSeries, error) {
	if err := checkPoints(points, func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }); err != nil {
		return ReturnSeries{}, &DataError{Stage: StageReturns, Asset: asset, Reason: err.Error()}
	}
	return ReturnSeries{asset: asset, points: clonePoints(points)}, nil
}

// Asset returns the asset identifier.
func (s ReturnSeries) Asset() AssetID { return s.asset }

// Len returns the number of observations.
func (s ReturnSeries) Len() int { return len(s.points) }

// At returns the i-th observation.
func (s ReturnSeries) At(i int) Point { return s.points[i] }

// Points returns a copy of the observations.
func (s ReturnSeries) Points() []Point { return clonePoints(s.points) }

// Series is a generic dated series (predictions, NAV levels). Dates are
// strictly increasing; values may be NaN where a stage had nothing to report.
type Series struct {
	dates  []time.Time
	values []float64
}

// NewSeries copies dates and values into a Series.
func NewSeries(dates []time.Time, values []float64) (Series, error) {
	if len(dates) != len(values) {
		return Series{}, fmt.Errorf("series has %d dates but %d values", len(dates), len(values))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return Series{}, fmt.Errorf("series dates not strictly increasing at %s", dates[i].Format(DateLayout))
		}
	}
	d := make([]time.Time, len(dates))
	copy(d, dates)
	v := make([]float64, len(values))
	copy(v, values)
	return Series{dates: d, values: v}, nil
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.dates) }

// Date returns the i-th date.
func (s Series) Date(i int) time.Time { return s.dates[i] }

// Value returns the i-th value.
func (s Series) Value(i int) float64 { return s.values[i] }

// Dates returns a copy of the dates.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// Values returns a copy of the values.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// DateLayout is the canonical YYYY-MM-DD rendering of a Day.
const DateLayout = "2006-01-02"

func checkPoints(points []Point, valid func(float64) bool) error {
	for i, p := range points {
		if !valid(p.Value) {
			return fmt.Errorf("invalid value %v at %s", p.Value, p.Date.Format(DateLayout))
		}
		if i > 0 && !p.Date.After(points[i-1].Date) {
			return fmt.Errorf("dates not strictly increasing at %s", p.Date.Format(DateLayout))
		}
	}
	return nil
}

func clonePoints(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	return out
}
