package isochrone

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/ports"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// CachedProvider checks a persistent cache before delegating to the wrapped provider.
// Cache failures are logged and never fail a lookup.
type CachedProvider struct {
	next  ports.IsochroneProvider
	cache ports.IsochroneCache
}

func NewCachedProvider(next ports.IsochroneProvider, cache ports.IsochroneCache) *CachedProvider {
	return &CachedProvider{next: next, cache: cache}
}

func (c *CachedProvider) Configured() bool { return c.next.Configured() }

func (c *CachedProvider) GetIsochrone(ctx context.Context, req ports.IsochroneRequest) (json.RawMessage, error) {
	key := CacheKey(req)

	if c.cache != nil {
		hit, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("isochrone cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return hit, nil
		}
	}

	res, err := c.next.GetIsochrone(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, res); err != nil {
			zap.L().Warn("isochrone cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

func (c *CachedProvider) GetIsochrones(
	ctx context.Context,
	origin domain.Coordinates,
	mode domain.TransportMode,
	rangesSeconds []int,
) ([]json.RawMessage, error) {
	return fetchMany(ctx, c, origin, mode, rangesSeconds)
}

// CacheKey normalizes a request so nearby-identical lookups share an entry.
// Coordinates are rounded to 6 decimals (about 10 cm).
func CacheKey(req ports.IsochroneRequest) string {
	rangeType := req.RangeType
	if rangeType == "" {
		rangeType = ports.RangeTime
	}
	return fmt.Sprintf("%.6f|%.6f|%s|%s|%d", req.Origin.Lat, req.Origin.Lng, req.Mode, rangeType, req.Range)
}
