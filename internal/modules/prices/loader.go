package prices

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/replica/internal/domain"
)

// LoadReport counts the rows each cleaning rule removed.
type LoadReport struct {
	Rows        int
	BadDates    int
	Duplicates  int
	Undefined   int
	NonPositive int
	Kept        int
}

// Loader cleans raw tables into PriceSeries.
type Loader struct {
	log zerolog.Logger
}

// NewLoader creates a new price loader.
func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{log: log.With().Str("component", "price_loader").Logger()}
}

// Load cleans table into a PriceSeries. Rules, in order: drop rows whose date
// does not parse; sort ascending by date keeping input order among equal dates;
// keep the last row of each duplicate date; drop undefined or infinite prices;
// drop prices <= 0. An empty result is a *domain.DataError.
func (l *Loader) Load(asset domain.AssetID, table RawTable, dayFirst bool) (domain.PriceSeries, error) {
	series, report, err := Clean(asset, table, dayFirst)
	if err != nil {
		l.log.Warn().Err(err).Str("asset", string(asset)).Int("rows", report.Rows).Msg("Price table produced no usable rows")
		return domain.PriceSeries{}, err
	}

	l.log.Debug().
		Str("asset", string(asset)).
		Int("rows", report.Rows).
		Int("bad_dates", report.BadDates).
		Int("duplicates", report.Duplicates).
		Int("undefined", report.Undefined).
		Int("non_positive", report.NonPositive).
		Int("kept", report.Kept).
		Msg("Loaded price series")

	return series, nil
}

// Clean is the pure form of Loader.Load.
func Clean(asset domain.AssetID, table RawTable, dayFirst bool) (domain.PriceSeries, LoadReport, error) {
	report := LoadReport{Rows: table.Len()}

	type row struct {
		date  time.Time
		price float64
	}

	rows := make([]row, 0, table.Len())
	for i, raw := range table.Dates {
		d, ok := ParseDate(raw, dayFirst)
		if !ok {
			report.BadDates++
			continue
		}
		price := math.NaN()
		if i < len(table.Prices) {
			price = table.Prices[i]
		}
		rows = append(rows, row{date: d, price: price})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	deduped := rows[:0:0]
	for i, r := range rows {
		if i+1 < len(rows) && rows[i+1].date.Equal(r.date) {
			report.Duplicates++
			continue
		}
		deduped = append(deduped, r)
	}

	points := make([]domain.Point, 0, len(deduped))
	for _, r := range deduped {
		if math.IsNaN(r.price) || math.IsInf(r.price, 0) {
			report.Undefined++
			continue
		}
		if r.price <= 0 {
			report.NonPositive++
			continue
		}
		points = append(points, domain.Point{Date: r.date, Value: r.price})
	}
	report.Kept = len(points)

	if len(points) == 0 {
		return domain.PriceSeries{}, report, &domain.DataError{
			Stage:  domain.StageLoad,
			Asset:  asset,
			Reason: "no valid rows after cleaning",
		}
	}

	series, err := domain.NewPriceSeries(asset, points)
	return series, report, err
}
