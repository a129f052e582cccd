package ports

import (
	"commute-area-service/internal/domain"
	"context"
	"encoding/json"
)

// Persistent cache of isochrone responses keyed by a normalized request key.
type IsochroneCache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Put(ctx context.Context, key string, geoJSON json.RawMessage) error
}

// Persistent cache mapping normalized query text to coordinates.
type GeocodeCache interface {
	GetMany(ctx context.Context, queries []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
