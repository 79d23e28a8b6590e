package panel

import (
	"fmt"

	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/pkg/formulas"
)

// Bounds are the clip thresholds computed for one column.
type Bounds struct {
	Lower float64
	Upper float64
}

// Winsorize clips every column of p to its [lower, upper] quantiles. The
// quantiles are computed from the reference rows only (the training window)
// and then applied to every row, so no information from later windows leaks
// into the thresholds. It returns a new panel and the per-column bounds.
func Winsorize(p *Panel, reference []int, lower, upper float64) (*Panel, map[domain.AssetID]Bounds, error) {
	if lower < 0 || upper > 1 || lower >= upper {
		return nil, nil, fmt.Errorf("invalid winsorize quantiles lower=%v upper=%v", lower, upper)
	}
	if len(reference) == 0 {
		return nil, nil, &domain.DataError{Stage: domain.StageWinsorize, Reason: "reference window has no rows"}
	}

	bounds := make(map[domain.AssetID]Bounds, len(p.assets))
	values := make([][]float64, len(p.values))
	ref := make([]float64, len(reference))

	for c, asset := range p.assets {
		col := p.values[c]
		for k, r := range reference {
			ref[k] = col[r]
		}
		b := Bounds{
			Lower: formulas.Quantile(lower, ref),
			Upper: formulas.Quantile(upper, ref),
		}
		bounds[asset] = b

		clipped := make([]float64, len(col))
		for r, v := range col {
			clipped[r] = formulas.Clip(v, b.Lower, b.Upper)
		}
		values[c] = clipped
	}

	return p.with(p.Dates(), values), bounds, nil
}
