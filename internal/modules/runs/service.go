package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/replica/internal/modules/pipeline"
)

// ErrNotReady is returned when no successful run exists yet.
var ErrNotReady = errors.New("no model results available yet")

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, cfg pipeline.Config) (*pipeline.Result, error)
}

// Service runs the pipeline and keeps the results. Refreshes are serialised;
// a failed refresh leaves the previously stored run in place.
type Service struct {
	runner Runner
	cfg    pipeline.Config
	repo   *Repository
	keep   int
	now    func() time.Time
	mu     sync.Mutex
	log    zerolog.Logger
}

// NewService creates a run service. keep > 0 prunes older runs after each
// successful refresh.
func NewService(runner Runner, cfg pipeline.Config, repo *Repository, keep int, log zerolog.Logger) *Service {
	return &Service{
		runner: runner,
		cfg:    cfg,
		repo:   repo,
		keep:   keep,
		now:    time.Now,
		log:    log.With().Str("service", "runs").Logger(),
	}
}

// Refresh runs the pipeline and stores the result as the newest run.
func (s *Service) Refresh(ctx context.Context) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info().Msg("Starting pipeline run")
	res, err := s.runner.Run(ctx, s.cfg)
	if err != nil {
		s.log.Error().Err(err).Msg("Pipeline run failed; keeping previous results")
		return Run{}, fmt.Errorf("pipeline run failed: %w", err)
	}

	run := Run{
		ID:        uuid.New(),
		CreatedAt: s.now().UTC(),
		Snapshot:  NewSnapshot(res),
	}
	if err := s.repo.Save(ctx, run); err != nil {
		return Run{}, err
	}

	if s.keep > 0 {
		removed, err := s.repo.Prune(ctx, s.keep)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to prune old runs")
		} else if removed > 0 {
			s.log.Debug().Int64("removed", removed).Msg("Pruned old runs")
		}
	}

	s.log.Info().Str("id", run.ID.String()).Str("solver", run.Snapshot.Solver).Msg("Run stored")
	return run, nil
}

// Latest returns the newest stored run, or ErrNotReady.
func (s *Service) Latest(ctx context.Context) (Run, error) {
	run, err := s.repo.Latest(ctx)
	if errors.Is(err, ErrNoRuns) {
		return Run{}, ErrNotReady
	}
	return run, err
}

// Get returns a stored run by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	return s.repo.Get(ctx, id)
}
