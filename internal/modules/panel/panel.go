// Package panel aligns return series into a date-indexed panel and prepares
// it for estimation: window selection, train-only winsorizing and design
// matrix extraction.
package panel

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/replica/internal/domain"
)

// Panel is a date-indexed table of returns. Every column has a value on every
// row; rows are exactly the dates common to all input series, ascending.
// A Panel is never modified after construction.
type Panel struct {
	dates  []time.Time
	assets []domain.AssetID
	index  map[domain.AssetID]int
	values [][]float64 // values[col][row]
}

// Align inner-joins series on date, folding left to right, and sorts the
// result ascending. One input yields that series unchanged.
func Align(series []domain.ReturnSeries) (*Panel, error) {
	if len(series) == 0 {
		return nil, &domain.DataError{Stage: domain.StageAlign, Reason: "no series to align"}
	}

	assets := make([]domain.AssetID, len(series))
	index := make(map[domain.AssetID]int, len(series))
	lookups := make([]map[int64]float64, len(series))
	for i, s := range series {
		if _, dup := index[s.Asset()]; dup {
			return nil, &domain.DataError{Stage: domain.StageAlign, Asset: s.Asset(), Reason: "asset appears twice"}
		}
		assets[i] = s.Asset()
		index[s.Asset()] = i

		m := make(map[int64]float64, s.Len())
		for j := 0; j < s.Len(); j++ {
			p := s.At(j)
			m[p.Date.Unix()] = p.Value
		}
		lookups[i] = m
	}

	common := make(map[int64]time.Time, series[0].Len())
	for j := 0; j < series[0].Len(); j++ {
		d := series[0].At(j).Date
		common[d.Unix()] = d
	}
	for i := 1; i < len(series); i++ {
		for key := range common {
			if _, ok := lookups[i][key]; !ok {
				delete(common, key)
			}
		}
	}

	if len(common) == 0 {
		return nil, &domain.DataError{Stage: domain.StageAlign, Reason: "no dates common to all series"}
	}

	dates := make([]time.Time, 0, len(common))
	for _, d := range common {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })

	values := make([][]float64, len(series))
	for i := range series {
		col := make([]float64, len(dates))
		for r, d := range dates {
			col[r] = lookups[i][d.Unix()]
		}
		values[i] = col
	}

	return &Panel{dates: dates, assets: assets, index: index, values: values}, nil
}

// Len returns the number of rows.
func (p *Panel) Len() int { return len(p.dates) }

// Date returns the date of row r.
func (p *Panel) Date(r int) time.Time { return p.dates[r] }

// Dates returns a copy of the row dates.
func (p *Panel) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// Assets returns the column identifiers in join order.
func (p *Panel) Assets() []domain.AssetID {
	out := make([]domain.AssetID, len(p.assets))
	copy(out, p.assets)
	return out
}

// Has reports whether the panel has a column for asset.
func (p *Panel) Has(asset domain.AssetID) bool {
	_, ok := p.index[asset]
	return ok
}

// Column returns a copy of asset's values.
func (p *Panel) Column(asset domain.AssetID) ([]float64, error) {
	i, ok := p.index[asset]
	if !ok {
		return nil, fmt.Errorf("panel has no column %q", asset)
	}
	out := make([]float64, len(p.values[i]))
	copy(out, p.values[i])
	return out, nil
}

// Value returns the value of asset on row r.
func (p *Panel) Value(r int, asset domain.AssetID) float64 {
	return p.values[p.index[asset]][r]
}

func (p *Panel) with(dates []time.Time, values [][]float64) *Panel {
	return &Panel{
		dates:  dates,
		assets: p.Assets(),
		index:  p.index,
		values: values,
	}
}
