package isochrone

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/ports"
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// maxBatchConcurrency bounds in-flight requests for one batch.
const maxBatchConcurrency = 4

// fetchMany fetches one time-based isochrone per range concurrently.
// The first failure cancels the remaining lookups and fails the batch.
func fetchMany(
	ctx context.Context,
	p ports.IsochroneProvider,
	origin domain.Coordinates,
	mode domain.TransportMode,
	rangesSeconds []int,
) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(rangesSeconds))
	if len(rangesSeconds) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)

	for i, r := range rangesSeconds {
		i, r := i, r
		g.Go(func() error {
			res, err := p.GetIsochrone(gctx, ports.IsochroneRequest{
				Origin:    origin,
				Mode:      mode,
				Range:     r,
				RangeType: ports.RangeTime,
			})
			if err != nil {
				return eris.Wrapf(err, "isochrone batch: range %ds", r)
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetIsochrones implements IsochroneBatchProvider.
func (p *GeoapifyProvider) GetIsochrones(
	ctx context.Context,
	origin domain.Coordinates,
	mode domain.TransportMode,
	rangesSeconds []int,
) ([]json.RawMessage, error) {
	return fetchMany(ctx, p, origin, mode, rangesSeconds)
}
