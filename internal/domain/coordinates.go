package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const earthRadiusKm = 6371.0

// Paris is the last-resort location used when nothing else resolves.
var Paris = Coordinates{Lat: 48.8566, Lng: 2.3522}

// Immutable geographic coordinates (latitude, longitude) in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Return coordinates as [lon, lat] for GeoJSON-ordered APIs.
func (c Coordinates) LonLat() []float64 { return []float64{c.Lng, c.Lat} }

// Valid reports whether both values are finite and within range.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinates) Validate() error {
	if !c.Valid() {
		return eris.Errorf("invalid coordinates lat=%v lng=%v", c.Lat, c.Lng)
	}
	return nil
}

// Format renders "lat, lng" with the given number of decimals.
func (c Coordinates) Format(precision int) string {
	return fmt.Sprintf("%.*f, %.*f", precision, c.Lat, precision, c.Lng)
}

func (c Coordinates) String() string { return c.Format(6) }

// DistanceKm returns the great-circle distance between two points (haversine).
func (c Coordinates) DistanceKm(other Coordinates) float64 {
	dLat := toRadians(other.Lat - c.Lat)
	dLng := toRadians(other.Lng - c.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(c.Lat))*math.Cos(toRadians(other.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ParseCoordinates parses a "lat, lng" string. Out-of-range values are rejected.
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinates{}, eris.Errorf("parse coordinates: expected \"lat, lng\", got %q", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, eris.Wrapf(err, "parse coordinates: latitude %q", parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, eris.Wrapf(err, "parse coordinates: longitude %q", parts[1])
	}

	c := Coordinates{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return Coordinates{}, eris.Wrap(err, "parse coordinates")
	}
	return c, nil
}

// Center returns the arithmetic centroid of the given points.
func Center(points []Coordinates) (Coordinates, error) {
	if len(points) == 0 {
		return Coordinates{}, eris.New("center: no points")
	}

	var sum Coordinates
	for _, p := range points {
		sum.Lat += p.Lat
		sum.Lng += p.Lng
	}
	n := float64(len(points))
	return Coordinates{Lat: sum.Lat / n, Lng: sum.Lng / n}, nil
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
