package evaluation

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/replica/internal/domain"
)

// Timeframe selects how far back from the last date a chart reaches.
type Timeframe string

const (
	OneDay    Timeframe = "1D"
	FiveDays  Timeframe = "5D"
	OneMonth  Timeframe = "1M"
	SixMonths Timeframe = "6M"
	OneYear   Timeframe = "1Y"
	FiveYears Timeframe = "5Y"
	Max       Timeframe = "MAX"
)

// DefaultTimeframe applies when no timeframe is requested.
const DefaultTimeframe = OneYear

// ParseTimeframe maps a query value onto a Timeframe. Empty means the
// default; anything unrecognised means Max.
func ParseTimeframe(raw string) Timeframe {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return DefaultTimeframe
	}
	switch tf := Timeframe(raw); tf {
	case OneDay, FiveDays, OneMonth, SixMonths, OneYear, FiveYears:
		return tf
	}
	return Max
}

// Start returns the first date covered when the chart ends at end. ok is
// false for Max.
func (tf Timeframe) Start(end time.Time) (start time.Time, ok bool) {
	switch tf {
	case OneDay:
		return end.AddDate(0, 0, -1), true
	case FiveDays:
		return end.AddDate(0, 0, -5), true
	case OneMonth:
		return minusMonths(end, 1), true
	case SixMonths:
		return minusMonths(end, 6), true
	case OneYear:
		return minusMonths(end, 12), true
	case FiveYears:
		return minusMonths(end, 60), true
	}
	return time.Time{}, false
}

// minusMonths moves back m calendar months, clamping to the last day of the
// target month (Mar 31 minus one month is Feb 28/29).
func minusMonths(t time.Time, m int) time.Time {
	y, mo, d := t.Date()
	first := time.Date(y, mo, 1, 0, 0, 0, 0, t.Location()).AddDate(0, -m, 0)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Comparison holds two NAV curves on the same dates.
type Comparison struct {
	Dates     []time.Time
	Synthetic []float64
	Actual    []float64
}

// NewComparison inner-joins the two NAV series on date.
func NewComparison(synthetic, actual domain.Series) (Comparison, error) {
	byDate := make(map[time.Time]float64, actual.Len())
	for i := 0; i < actual.Len(); i++ {
		byDate[actual.Date(i)] = actual.Value(i)
	}

	var c Comparison
	for i := 0; i < synthetic.Len(); i++ {
		a, ok := byDate[synthetic.Date(i)]
		if !ok {
			continue
		}
		c.Dates = append(c.Dates, synthetic.Date(i))
		c.Synthetic = append(c.Synthetic, synthetic.Value(i))
		c.Actual = append(c.Actual, a)
	}
	if len(c.Dates) == 0 {
		return Comparison{}, fmt.Errorf("nav series share no dates")
	}
	return c, nil
}

// Len returns the number of dates.
func (c Comparison) Len() int { return len(c.Dates) }

// Slice keeps the dates within tf of the last date, inclusive. Levels are not
// rebased.
func (c Comparison) Slice(tf Timeframe) Comparison {
	if c.Len() == 0 {
		return c
	}
	start, ok := tf.Start(c.Dates[c.Len()-1])
	if !ok {
		return c
	}
	from := c.Len()
	for i, d := range c.Dates {
		if !d.Before(start) {
			from = i
			break
		}
	}
	return Comparison{
		Dates:     c.Dates[from:],
		Synthetic: c.Synthetic[from:],
		Actual:    c.Actual[from:],
	}
}

// Dataset is one line of a chart.
type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// Chart is the payload the front end plots: date labels and two datasets.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Chart renders the comparison with the given dataset labels.
func (c Comparison) Chart(syntheticLabel, actualLabel string) Chart {
	labels := make([]string, c.Len())
	for i, d := range c.Dates {
		labels[i] = d.Format(domain.DateLayout)
	}
	return Chart{
		Labels: labels,
		Datasets: []Dataset{
			{Label: syntheticLabel, Data: append([]float64(nil), c.Synthetic...)},
			{Label: actualLabel, Data: append([]float64(nil), c.Actual...)},
		},
	}
}
