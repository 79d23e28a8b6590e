package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/replica/internal/domain"
)

const validModel = `
target: silver
basket: [gold, copper]
day_first: false
assets:
  silver: {path: prices/silver.csv, date_column: Date, price_column: Close}
  gold: {path: /srv/prices/gold.csv, date_column: Date, price_column: Close}
  copper: {path: prices/copper.csv, date_column: Date, price_column: Adj Close}
windows:
  train: {start: "2015-01-01", end: "2019-12-31"}
  validation: {start: "2019-01-01", end: "2020-12-31"}
  test: {start: "2021-01-01"}
winsor: {lower: 0.01, upper: 0.99}
static: {leverage: 1.0, cap: 1.0, ridge: 0.0001, max_iterations: 500}
filter: {process_noise: 0.00001, observation_noise: 0.0001}
nav_base: 100
workers: 2
`

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	return fields
}

func TestParseModel_Valid(t *testing.T) {
	m, err := ParseModel([]byte(validModel), "/data")
	require.NoError(t, err)

	assert.Equal(t, "/data/prices/silver.csv", m.Assets["silver"].Path)
	assert.Equal(t, "/srv/prices/gold.csv", m.Assets["gold"].Path)

	cfg, err := m.Pipeline()
	require.NoError(t, err)
	assert.Equal(t, domain.AssetID("silver"), cfg.Schema.Target)
	assert.Equal(t, []domain.AssetID{"gold", "copper"}, cfg.Schema.Basket)
	assert.Equal(t, 0.01, cfg.WinsorLower)
	assert.Equal(t, 500, cfg.Static.MaxIterations)
	assert.Equal(t, 0.0001, cfg.Filter.ObservationNoise)
	assert.Equal(t, 100.0, cfg.NavBase)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "2019-12-31", cfg.Windows.Train.End.Format(domain.DateLayout))
	assert.True(t, cfg.Windows.Test.End.IsZero())

	assert.NotNil(t, m.Source())
}

func TestParseModel_MissingValues(t *testing.T) {
	doc := strings.Replace(validModel, "nav_base: 100\n", "", 1)
	doc = strings.Replace(doc, "ridge: 0.0001, ", "", 1)

	_, err := ParseModel([]byte(doc), "/data")
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"nav_base", "static.ridge"}, fieldsOf(t, err))
}

func TestParseModel_ZeroIsNotMissing(t *testing.T) {
	doc := strings.Replace(validModel, "process_noise: 0.00001", "process_noise: 0", 1)
	doc = strings.Replace(doc, "lower: 0.01", "lower: 0", 1)

	m, err := ParseModel([]byte(doc), "/data")
	require.NoError(t, err)
	assert.Equal(t, 0.0, *m.Filter.ProcessNoise)
}

func TestParseModel_CrossFieldRules(t *testing.T) {
	tests := []struct {
		name  string
		from  string
		to    string
		field string
	}{
		{"target in basket", "basket: [gold, copper]", "basket: [gold, silver]", "basket"},
		{"asset without file", "basket: [gold, copper]", "basket: [gold, copper, zinc]", "assets"},
		{"quantiles reversed", "lower: 0.01, upper: 0.99", "lower: 0.9, upper: 0.1", "winsor"},
		{"test overlaps train", `test: {start: "2021-01-01"}`, `test: {start: "2019-06-01"}`, "windows"},
		{"train without end", `train: {start: "2015-01-01", end: "2019-12-31"}`, `train: {start: "2015-01-01"}`, "windows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(validModel, tt.from, tt.to, 1)
			require.NotEqual(t, validModel, doc)

			_, err := ParseModel([]byte(doc), "/data")
			require.Error(t, err)
			assert.Contains(t, fieldsOf(t, err), tt.field)
		})
	}
}

func TestParseModel_TagRules(t *testing.T) {
	tests := []struct {
		name  string
		from  string
		to    string
		field string
	}{
		{"negative cap", "cap: 1.0", "cap: -1", "static.cap"},
		{"zero observation noise", "observation_noise: 0.0001", "observation_noise: 0", "filter.observation_noise"},
		{"bad date", `end: "2020-12-31"`, `end: "31/12/2020"`, "windows.validation.end"},
		{"duplicate basket", "basket: [gold, copper]", "basket: [gold, gold]", "basket"},
		{"missing column", "price_column: Adj Close", "price_column: \"\"", "assets[copper].price_column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(validModel, tt.from, tt.to, 1)
			require.NotEqual(t, validModel, doc)

			_, err := ParseModel([]byte(doc), "/data")
			require.Error(t, err)
			assert.Contains(t, fieldsOf(t, err), tt.field)
		})
	}
}

func TestParseModel_UnknownKey(t *testing.T) {
	_, err := ParseModel([]byte(validModel+"lookback: 30\n"), "/data")
	assert.Error(t, err)
}

func TestLoadModel_ResolvesRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validModel), 0o644))

	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "prices", "silver.csv"), m.Assets["silver"].Path)

	_, err = LoadModel(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
