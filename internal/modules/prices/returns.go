package prices

import (
	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/pkg/formulas"
)

// ToLogReturns converts prices into log returns r_t = ln(P_t / P_{t-1}).
// The first date has no predecessor and is dropped, so the result is one
// row shorter than the input.
func ToLogReturns(px domain.PriceSeries) domain.ReturnSeries {
	if px.Len() < 2 {
		rs, _ := domain.NewReturnSeries(px.Asset(), nil)
		return rs
	}

	points := make([]domain.Point, 0, px.Len()-1)
	prev := px.At(0)
	for i := 1; i < px.Len(); i++ {
		cur := px.At(i)
		points = append(points, domain.Point{Date: cur.Date, Value: formulas.LogReturn(prev.Value, cur.Value)})
		prev = cur
	}

	// Prices are finite and > 0, so every log return is finite.
	rs, err := domain.NewReturnSeries(px.Asset(), points)
	if err != nil {
		panic(err)
	}
	return rs
}
