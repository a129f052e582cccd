package domain

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Bounding box of an area's geometry, in degrees.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

func (b Bounds) Center() Coordinates {
	return Coordinates{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

// Contains reports whether c lies inside the box (edges included).
func (b Bounds) Contains(c Coordinates) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lng >= b.West && c.Lng <= b.East
}

// DecodeFeatureCollection parses a GeoJSON FeatureCollection.
// It fails on anything that is not a FeatureCollection or carries no geometry.
func DecodeFeatureCollection(raw json.RawMessage) (*geojson.FeatureCollection, error) {
	if len(raw) == 0 {
		return nil, eris.New("geojson: empty document")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, eris.Wrap(err, "geojson: decode feature collection")
	}

	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return nil, eris.Errorf("geojson: feature #%d has no geometry", i)
		}
	}
	return &fc, nil
}

// BoundsOf computes the bounding box of every geometry in a FeatureCollection.
func BoundsOf(raw json.RawMessage) (Bounds, error) {
	fc, err := DecodeFeatureCollection(raw)
	if err != nil {
		return Bounds{}, err
	}
	if len(fc.Features) == 0 {
		return Bounds{}, eris.New("geojson: feature collection is empty")
	}

	b := geom.NewBounds(geom.XY)
	for _, f := range fc.Features {
		b.Extend(f.Geometry)
	}
	if b.IsEmpty() {
		return Bounds{}, eris.New("geojson: geometry has no coordinates")
	}

	// GeoJSON positions are [lon, lat].
	return Bounds{
		South: b.Min(1),
		West:  b.Min(0),
		North: b.Max(1),
		East:  b.Max(0),
	}, nil
}
