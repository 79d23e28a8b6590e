package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/replica/internal/domain"
)

// ErrNoRuns is returned when no run matches the query.
var ErrNoRuns = errors.New("no stored runs")

// Repository stores runs in the runs database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a run repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "runs").Logger(),
	}
}

// Save inserts run. Runs are append-only.
func (r *Repository) Save(ctx context.Context, run Run) error {
	payload, err := msgpack.Marshal(&run.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, target, solver, panel_start, panel_end, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.CreatedAt.UnixMilli(),
		run.Snapshot.Target,
		run.Snapshot.Solver,
		run.Snapshot.Start.Format(domain.DateLayout),
		run.Snapshot.End.Format(domain.DateLayout),
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	r.log.Debug().Str("id", run.ID.String()).Int("bytes", len(payload)).Msg("Run stored")
	return nil
}

// Latest returns the most recently created run.
func (r *Repository) Latest(ctx context.Context) (Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, payload FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	return scanRun(row)
}

// Get returns the run with the given id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, payload FROM runs WHERE id = ?`, id.String())
	return scanRun(row)
}

// Count returns the number of stored runs.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (r *Repository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("prune must keep at least one run, got %d", keep)
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(row *sql.Row) (Run, error) {
	var (
		id        string
		createdAt int64
		payload   []byte
	)
	if err := row.Scan(&id, &createdAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNoRuns
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("stored run has invalid id %q: %w", id, err)
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return Run{}, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	snap.utc()

	return Run{
		ID:        parsed,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		Snapshot:  snap,
	}, nil
}
