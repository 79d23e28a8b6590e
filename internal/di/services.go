package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/replica/internal/config"
	"github.com/aristath/replica/internal/modules/pipeline"
	"github.com/aristath/replica/internal/modules/runs"
)

// InitializeServices loads the model config and builds the pipeline and the
// run service on top of the databases already in the container.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	model, err := config.LoadModel(cfg.ModelConfig)
	if err != nil {
		return fmt.Errorf("failed to load model config %s: %w", cfg.ModelConfig, err)
	}
	pipelineCfg, err := model.Pipeline()
	if err != nil {
		return err
	}

	container.Model = model
	container.PipelineConfig = pipelineCfg
	container.Pipeline = pipeline.New(model.Source(), log)
	container.RunRepo = runs.NewRepository(container.RunsDB.Conn(), log)
	container.RunService = runs.NewService(container.Pipeline, pipelineCfg, container.RunRepo, cfg.KeepRuns, log)

	log.Info().
		Str("target", string(pipelineCfg.Schema.Target)).
		Int("basket", len(pipelineCfg.Schema.Basket)).
		Msg("Model loaded")
	return nil
}
