package prices

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/replica/internal/domain"
)

// Batch loads and transforms many assets concurrently. Assets are independent,
// so there is no ordering between them; the caller's alignment step is the
// synchronisation point.
type Batch struct {
	source  TableSource
	loader  *Loader
	workers int
	log     zerolog.Logger
}

// NewBatch creates a batch loader. workers <= 0 means one goroutine per asset.
func NewBatch(source TableSource, workers int, log zerolog.Logger) *Batch {
	return &Batch{
		source:  source,
		loader:  NewLoader(log),
		workers: workers,
		log:     log.With().Str("component", "price_batch").Logger(),
	}
}

// Returns loads every asset's table, cleans it and converts it to log returns.
// The first failure cancels the remaining loads and is returned.
func (b *Batch) Returns(ctx context.Context, assets []domain.AssetID, dayFirst bool) (map[domain.AssetID]domain.ReturnSeries, error) {
	g, gctx := errgroup.WithContext(ctx)
	if b.workers > 0 {
		g.SetLimit(b.workers)
	}

	var mu sync.Mutex
	out := make(map[domain.AssetID]domain.ReturnSeries, len(assets))

	for _, asset := range assets {
		asset := asset
		g.Go(func() error {
			table, err := b.source.Table(gctx, asset)
			if err != nil {
				return fmt.Errorf("failed to read table for %s: %w", asset, err)
			}
			px, err := b.loader.Load(asset, table, dayFirst)
			if err != nil {
				return err
			}
			rs := ToLogReturns(px)

			mu.Lock()
			out[asset] = rs
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.log.Info().Int("assets", len(out)).Msg("Loaded return series")
	return out, nil
}
