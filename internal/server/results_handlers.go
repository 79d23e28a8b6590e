package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/internal/modules/evaluation"
	"github.com/aristath/replica/internal/modules/runs"
)

// RunResponse describes a stored run without its series.
type RunResponse struct {
	ID         string             `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	Target     string             `json:"target"`
	Basket     []string           `json:"basket"`
	Solver     string             `json:"solver"`
	Start      string             `json:"start"`
	End        string             `json:"end"`
	LatestDate string             `json:"latest_date"`
	Rows       map[string]int     `json:"rows"`
	Metrics    evaluation.Metrics `json:"metrics"`
	Static     evaluation.Metrics `json:"static_metrics"`
	TimingsMS  map[string]int64   `json:"timings_ms,omitempty"`
}

func newRunResponse(run runs.Run) RunResponse {
	snap := run.Snapshot
	return RunResponse{
		ID:         run.ID.String(),
		CreatedAt:  run.CreatedAt,
		Target:     snap.Target,
		Basket:     snap.Basket,
		Solver:     snap.Solver,
		Start:      snap.Start.Format(domain.DateLayout),
		End:        snap.End.Format(domain.DateLayout),
		LatestDate: snap.LatestDate.Format(domain.DateLayout),
		Rows: map[string]int{
			"train":      snap.Rows.Train,
			"validation": snap.Rows.Validation,
			"test":       snap.Rows.Test,
		},
		Metrics:   snap.Metrics,
		Static:    snap.StaticMetrics,
		TimingsMS: snap.TimingsMS,
	}
}

// latest loads the newest run or writes the error response.
func (s *Server) latest(w http.ResponseWriter, r *http.Request) (runs.Run, bool) {
	run, err := s.runs.Latest(r.Context())
	if errors.Is(err, runs.ErrNotReady) {
		s.writeError(w, http.StatusServiceUnavailable, "Model results not yet available")
		return runs.Run{}, false
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load latest run")
		s.writeError(w, http.StatusInternalServerError, "Failed to load model results")
		return runs.Run{}, false
	}
	return run, true
}

func (s *Server) handleStaticWeights(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, run.Snapshot.StaticWeights)
}

func (s *Server) handleDynamicWeights(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, run.Snapshot.LatestWeights)
}

func (s *Server) handleDynamicHistory(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}

	snap := run.Snapshot
	history := make(map[string]map[string]float64, len(snap.History))
	for _, row := range snap.History {
		weights := make(map[string]float64, len(snap.Basket))
		for i, asset := range snap.Basket {
			weights[asset] = row.Weights[i]
		}
		history[row.Date.Format(domain.DateLayout)] = weights
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleLiveChart(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	tf := evaluation.ParseTimeframe(r.URL.Query().Get("timeframe"))
	chart := run.Snapshot.LiveChart.Slice(tf).Chart("Synthetic NAV", run.Snapshot.Target+" NAV")
	s.writeJSON(w, http.StatusOK, chart)
}

func (s *Server) handleBasketChart(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	tf := evaluation.ParseTimeframe(r.URL.Query().Get("timeframe"))
	chart := run.Snapshot.BasketChart.Slice(tf).Chart("Static basket NAV", run.Snapshot.Target+" NAV")
	s.writeJSON(w, http.StatusOK, chart)
}

func (s *Server) handlePerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, run.Snapshot.Metrics)
}

func (s *Server) handleStaticMetrics(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, run.Snapshot.StaticMetrics)
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, newRunResponse(run))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	run, err := s.runs.Get(r.Context(), id)
	if errors.Is(err, runs.ErrNoRuns) {
		s.writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("id", id.String()).Msg("Failed to load run")
		s.writeError(w, http.StatusInternalServerError, "Failed to load run")
		return
	}
	s.writeJSON(w, http.StatusOK, newRunResponse(run))
}

// handleRefresh re-runs the model synchronously. A failed run leaves the
// previously stored results in place.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Refresh(r.Context())
	if err != nil {
		var insufficient *domain.InsufficientDataError
		status := http.StatusInternalServerError
		if domain.IsDataError(err) || errors.As(err, &insufficient) {
			status = http.StatusUnprocessableEntity
		}
		s.log.Error().Err(err).Msg("Refresh failed")
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, newRunResponse(run))
}
