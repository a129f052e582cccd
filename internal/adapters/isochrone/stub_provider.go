package isochrone

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/ports"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// StubProvider answers isochrone lookups locally with a square polygon around
// the origin whose half-width grows with the requested range. It backs tests
// and the offline "stub" provider mode.
type StubProvider struct {
	mu       sync.Mutex
	err      error
	fixed    json.RawMessage
	requests []ports.IsochroneRequest
	disabled bool
}

func NewStubProvider() *StubProvider { return &StubProvider{} }

// FailWith makes every subsequent lookup return err (nil restores success).
func (s *StubProvider) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Respond makes every subsequent lookup return geoJSON verbatim.
func (s *StubProvider) Respond(geoJSON json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixed = geoJSON
}

// SetConfigured toggles the value reported by Configured.
func (s *StubProvider) SetConfigured(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = !ok
}

// Requests returns the lookups received so far.
func (s *StubProvider) Requests() []ports.IsochroneRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.IsochroneRequest(nil), s.requests...)
}

func (s *StubProvider) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disabled
}

func (s *StubProvider) GetIsochrone(ctx context.Context, req ports.IsochroneRequest) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	err, fixed := s.err, s.fixed
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if fixed != nil {
		return append(json.RawMessage(nil), fixed...), nil
	}
	return SquareFeatureCollection(req.Origin, req.Mode, req.Range), nil
}

func (s *StubProvider) GetIsochrones(
	ctx context.Context,
	origin domain.Coordinates,
	mode domain.TransportMode,
	rangesSeconds []int,
) ([]json.RawMessage, error) {
	return fetchMany(ctx, s, origin, mode, rangesSeconds)
}

// SquareFeatureCollection builds a one-polygon FeatureCollection centred on origin.
func SquareFeatureCollection(origin domain.Coordinates, mode domain.TransportMode, rangeSeconds int) json.RawMessage {
	// Roughly 1 km per minute of travel, in degrees.
	d := float64(rangeSeconds) / 60 / 111.0
	w, e := origin.Lng-d, origin.Lng+d
	s, n := origin.Lat-d, origin.Lat+d

	return json.RawMessage(fmt.Sprintf(
		`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"mode":%q,"range":%d,"range_type":"time"},`+
			`"geometry":{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}}]}`,
		string(mode), rangeSeconds,
		w, s, e, s, e, n, w, n, w, s,
	))
}
