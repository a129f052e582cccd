package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Travel time bounds accepted by the isochrone provider.
const (
	MinTravelMinutes = 1
	MaxTravelMinutes = 60
	// MaxRangeSeconds is the provider-side ceiling for time-based isochrones.
	MaxRangeSeconds = 3600
)

// Represents a reachable zone drawn around a starting location.
//
// ID, Color, CreatedAt and Location are fixed at creation. Mode, TimeInMinutes
// and GeoJSON change together when the area is updated. GeoJSON is the
// provider's feature collection and is kept verbatim.
type CommuteArea struct {
	ID            string
	Location      Location
	Mode          TransportMode
	TimeInMinutes int
	GeoJSON       json.RawMessage
	Color         string
	CreatedAt     time.Time
}

// Label is the legend text for the area, e.g. "Paris (30min)".
func (a CommuteArea) Label() string {
	return fmt.Sprintf("%s (%dmin)", a.Location.Address, a.TimeInMinutes)
}

// Clone returns a copy that shares no mutable memory with a.
func (a CommuteArea) Clone() CommuteArea {
	out := a
	if a.GeoJSON != nil {
		out.GeoJSON = append(json.RawMessage(nil), a.GeoJSON...)
	}
	return out
}

// FormatTravelTime renders minutes as "45 min", "1h" or "1h30".
func FormatTravelTime(minutes int) string {
	if minutes >= 60 {
		h := minutes / 60
		m := minutes % 60
		if m > 0 {
			return fmt.Sprintf("%dh%d", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%d min", minutes)
}
