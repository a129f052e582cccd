package ports

import (
	"commute-area-service/internal/domain"
	"context"
	"encoding/json"
)

// RangeType selects whether an isochrone range is expressed in seconds or meters.
type RangeType string

const (
	RangeTime     RangeType = "time"
	RangeDistance RangeType = "distance"
)

// Parameters of a single isochrone lookup.
type IsochroneRequest struct {
	Origin    domain.Coordinates
	Mode      domain.TransportMode
	Range     int // seconds for RangeTime, meters for RangeDistance
	RangeType RangeType
}

// Contract for retrieving the area reachable from a point.
type IsochroneProvider interface {
	// Report whether the provider has the credentials it needs.
	Configured() bool
	// Return the reachable area as a GeoJSON FeatureCollection.
	GetIsochrone(ctx context.Context, req IsochroneRequest) (json.RawMessage, error)
}

// Optional extension of IsochroneProvider that fetches several ranges at once.
type IsochroneBatchProvider interface {
	IsochroneProvider
	// Return one feature collection per range, in the order given.
	GetIsochrones(ctx context.Context, origin domain.Coordinates, mode domain.TransportMode, rangesSeconds []int) ([]json.RawMessage, error)
}
