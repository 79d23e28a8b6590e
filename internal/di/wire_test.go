package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/replica/internal/config"
	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/internal/modules/runs"
	testingpkg "github.com/aristath/replica/internal/testing"
)

const testModel = `
target: silver
basket: [gold, copper]
day_first: false
assets:
  silver: {path: silver.csv, date_column: Date, price_column: Close}
  gold: {path: gold.csv, date_column: Date, price_column: Close}
  copper: {path: copper.csv, date_column: Date, price_column: Close}
windows:
  train: {end: "2021-06-30"}
  validation: {start: "2021-01-01", end: "2021-06-30"}
  test: {start: "2021-07-01"}
winsor: {lower: 0.01, upper: 0.99}
static: {leverage: 1.0, cap: 1.0, ridge: 0.000001, max_iterations: 1000}
filter: {process_noise: 0.00001, observation_noise: 0.0001}
nav_base: 100
workers: 2
`

func testConfig(t *testing.T, schedule string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	testingpkg.Metals(7, 600, map[domain.AssetID]float64{"gold": 0.6, "copper": 0.3}, 0.002).WriteCSV(t, dir)
	modelPath := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(modelPath, []byte(testModel), 0o644))

	return &config.Config{
		DataDir:         dir,
		Port:            8001,
		LogLevel:        "info",
		ModelConfig:     modelPath,
		RefreshSchedule: schedule,
		KeepRuns:        3,
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t, "0 30 18 * * 1-5")

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.RunsDB)
	assert.NotNil(t, container.Pipeline)
	assert.NotNil(t, container.RunService)
	assert.NotNil(t, container.Scheduler)
	assert.Equal(t, domain.AssetID("silver"), container.PipelineConfig.Schema.Target)

	ctx := context.Background()
	_, err = container.RunService.Latest(ctx)
	assert.ErrorIs(t, err, runs.ErrNotReady)

	run, err := container.RunService.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "silver", run.Snapshot.Target)
	assert.Greater(t, run.Snapshot.Rows.Test, 100)
	assert.InDelta(t, 0.6, run.Snapshot.StaticWeights["gold"], 0.1)
	assert.InDelta(t, 0.3, run.Snapshot.StaticWeights["copper"], 0.1)
	assert.Greater(t, run.Snapshot.Metrics.R2, 0.5)

	require.NoError(t, container.RefreshJob.Run())
	n, err := container.RunRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWire_NoSchedule(t *testing.T) {
	cfg := testConfig(t, "")

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })
	assert.NotNil(t, container.RefreshJob)
}

func TestWire_BadModel(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.ModelConfig = filepath.Join(cfg.DataDir, "missing.yaml")

	_, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}
