// Package prices turns raw per-asset price tables into clean price and log-return series.
package prices

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"

	"github.com/aristath/replica/internal/domain"
)

// RawTable is an unparsed date/price table for one asset. Dates are kept as
// the original strings; prices that could not be read as numbers are NaN.
type RawTable struct {
	Dates  []string
	Prices []float64
}

// Len returns the number of rows.
func (t RawTable) Len() int { return len(t.Dates) }

// FileSpec locates one asset's price table on disk.
type FileSpec struct {
	Path        string
	DateColumn  string
	PriceColumn string
}

// TableSource provides the raw table for an asset.
type TableSource interface {
	Table(ctx context.Context, asset domain.AssetID) (RawTable, error)
}

// ReadCSV reads the date and price columns of a CSV price table.
// Every column is read as text so date strings reach the loader untouched;
// unparseable prices become NaN and are dropped by the loader.
func ReadCSV(r io.Reader, dateColumn, priceColumn string) (RawTable, error) {
	df := dataframe.ReadCSV(r, dataframe.HasHeader(true), dataframe.DetectTypes(false))
	if df.Err != nil {
		return RawTable{}, fmt.Errorf("failed to read csv: %w", df.Err)
	}

	dates := df.Col(dateColumn)
	if dates.Err != nil {
		return RawTable{}, fmt.Errorf("date column %q: %w", dateColumn, dates.Err)
	}
	prices := df.Col(priceColumn)
	if prices.Err != nil {
		return RawTable{}, fmt.Errorf("price column %q: %w", priceColumn, prices.Err)
	}

	return RawTable{
		Dates:  dates.Records(),
		Prices: prices.Float(),
	}, nil
}

// CSVSource reads price tables from CSV files.
type CSVSource struct {
	files map[domain.AssetID]FileSpec
}

// NewCSVSource creates a source over the given asset files.
func NewCSVSource(files map[domain.AssetID]FileSpec) *CSVSource {
	copied := make(map[domain.AssetID]FileSpec, len(files))
	for k, v := range files {
		copied[k] = v
	}
	return &CSVSource{files: copied}
}

// Table implements TableSource.
func (s *CSVSource) Table(ctx context.Context, asset domain.AssetID) (RawTable, error) {
	file, ok := s.files[asset]
	if !ok {
		return RawTable{}, &domain.DataError{Stage: domain.StageLoad, Asset: asset, Reason: "no price file configured"}
	}
	if err := ctx.Err(); err != nil {
		return RawTable{}, err
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return RawTable{}, fmt.Errorf("failed to open price file for %s: %w", asset, err)
	}
	defer f.Close()

	table, err := ReadCSV(f, file.DateColumn, file.PriceColumn)
	if err != nil {
		return RawTable{}, fmt.Errorf("%s: %w", asset, err)
	}
	return table, nil
}

// StaticSource serves in-memory tables. Used by tests and by callers that
// already hold clean tables.
type StaticSource map[domain.AssetID]RawTable

// Table implements TableSource.
func (s StaticSource) Table(_ context.Context, asset domain.AssetID) (RawTable, error) {
	t, ok := s[asset]
	if !ok {
		return RawTable{}, &domain.DataError{Stage: domain.StageLoad, Asset: asset, Reason: "no price table"}
	}
	return t, nil
}
