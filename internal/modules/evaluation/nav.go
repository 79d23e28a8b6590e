package evaluation

import (
	"fmt"
	"time"

	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/pkg/formulas"
)

// Nav compounds a log-return series onto base. Each step converts the log
// return to a simple return, so NAV_t = NAV_{t-1}·(1 + exp(r_t) − 1) with
// NAV_{-1} = base; the first return is applied, not skipped. Non-finite
// rows are dropped before compounding.
func Nav(logReturns domain.Series, base float64) (domain.Series, error) {
	if !formulas.IsFinite(base) || base <= 0 {
		return domain.Series{}, fmt.Errorf("nav base must be a positive finite value, got %v", base)
	}

	dates := make([]time.Time, 0, logReturns.Len())
	levels := make([]float64, 0, logReturns.Len())
	level := base
	for i := 0; i < logReturns.Len(); i++ {
		r := logReturns.Value(i)
		if !formulas.IsFinite(r) {
			continue
		}
		level *= 1 + formulas.SimpleFromLog(r)
		dates = append(dates, logReturns.Date(i))
		levels = append(levels, level)
	}
	return domain.NewSeries(dates, levels)
}
