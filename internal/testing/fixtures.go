package testing

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/internal/modules/prices"
)

// Market describes synthetic weekday prices starting 2020-01-01. Basket
// assets follow independent random walks with daily log volatility Vol; the
// target's log return is the Loadings-weighted sum of basket returns plus
// Gaussian noise with standard deviation Noise.
type Market struct {
	Seed     int64
	Days     int
	Target   domain.AssetID
	Basket   []domain.AssetID
	Loadings map[domain.AssetID]float64
	Vol      float64
	Noise    float64
}

// Metals is the silver ~ gold + copper market used across tests.
func Metals(seed int64, days int, loadings map[domain.AssetID]float64, noise float64) Market {
	return Market{
		Seed:     seed,
		Days:     days,
		Target:   "silver",
		Basket:   []domain.AssetID{"gold", "copper"},
		Loadings: loadings,
		Vol:      0.01,
		Noise:    noise,
	}
}

// Tables generates the price tables. The same Market always yields the same
// prices.
func (m Market) Tables() prices.StaticSource {
	rng := rand.New(rand.NewSource(m.Seed))

	var dates []string
	for d := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC); len(dates) < m.Days; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, d.Format(domain.DateLayout))
	}

	levels := map[domain.AssetID]float64{m.Target: math.Log(20)}
	for i, a := range m.Basket {
		levels[a] = math.Log(100 * float64(i+1))
	}
	out := prices.StaticSource{}
	for a := range levels {
		out[a] = prices.RawTable{Dates: dates, Prices: make([]float64, m.Days)}
	}

	for i := range dates {
		if i > 0 {
			target := m.Noise * rng.NormFloat64()
			for _, a := range m.Basket {
				r := m.Vol * rng.NormFloat64()
				levels[a] += r
				target += m.Loadings[a] * r
			}
			levels[m.Target] += target
		}
		for a, l := range levels {
			out[a].Prices[i] = math.Exp(l)
		}
	}
	return out
}

// WriteCSV writes one "Date,Close" file per asset into dir and returns the
// paths keyed by asset.
func (m Market) WriteCSV(t *testing.T, dir string) map[domain.AssetID]string {
	t.Helper()

	paths := make(map[domain.AssetID]string)
	for asset, table := range m.Tables() {
		var b strings.Builder
		b.WriteString("Date,Close\n")
		for i, d := range table.Dates {
			fmt.Fprintf(&b, "%s,%.8f\n", d, table.Prices[i])
		}

		path := filepath.Join(dir, string(asset)+".csv")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
		paths[asset] = path
	}
	return paths
}
