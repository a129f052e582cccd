package geocoding

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/ports"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Resolver turns free text into coordinates using the address and commune
// searchers, with an optional persistent cache in front of them.
type Resolver struct {
	addresses ports.AddressSearcher
	cities    ports.CitySearcher
	cache     ports.GeocodeCache
	fallback  domain.Coordinates
}

type ResolverOption func(*Resolver)

func WithCache(c ports.GeocodeCache) ResolverOption {
	return func(r *Resolver) { r.cache = c }
}

// WithFallback replaces the last-resort location (Paris by default).
func WithFallback(c domain.Coordinates) ResolverOption {
	return func(r *Resolver) { r.fallback = c }
}

func NewResolver(addresses ports.AddressSearcher, cities ports.CitySearcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{addresses: addresses, cities: cities, fallback: domain.Paris}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SearchAddressesSoft returns address suggestions, or an empty slice when the
// searcher fails. The failure is logged.
func (r *Resolver) SearchAddressesSoft(ctx context.Context, query string) []domain.AddressCandidate {
	res, err := r.addresses.SearchAddresses(ctx, query)
	if err != nil {
		zap.L().Warn("address search failed", zap.String("query", query), zap.Error(err))
		return []domain.AddressCandidate{}
	}
	return res
}

// SearchCitiesSoft is the fail-soft counterpart of CitySearcher.SearchCities.
func (r *Resolver) SearchCitiesSoft(ctx context.Context, query string, limit int) []domain.City {
	res, err := r.cities.SearchCities(ctx, query, limit)
	if err != nil {
		zap.L().Warn("city search failed", zap.String("query", query), zap.Error(err))
		return []domain.City{}
	}
	return res
}

// AddressCoordinates returns the first address candidate for text.
func (r *Resolver) AddressCoordinates(ctx context.Context, text string) (domain.Coordinates, bool) {
	res := r.SearchAddressesSoft(ctx, text)
	if len(res) == 0 {
		return domain.Coordinates{}, false
	}
	return res[0].Coordinates, true
}

// CityCoordinates resolves text as a French commune: the directory entry is
// geocoded as "<name>, <department>, France", then "<text>, France" is tried.
func (r *Resolver) CityCoordinates(ctx context.Context, text string) (domain.Coordinates, bool) {
	if cities := r.SearchCitiesSoft(ctx, text, 1); len(cities) > 0 {
		city := cities[0]
		q := fmt.Sprintf("%s, %s, France", city.Name, city.DepartmentCode)
		if c, ok := r.AddressCoordinates(ctx, q); ok {
			return c, true
		}
	}
	return r.AddressCoordinates(ctx, text+", France")
}

// CoordinatesWithFallback always returns a location: the first address match,
// then a commune match, then the fallback location.
func (r *Resolver) CoordinatesWithFallback(ctx context.Context, text string) domain.Coordinates {
	key := normalize(text)
	if key == "" {
		return r.fallback
	}

	if c, ok := r.cached(ctx, key); ok {
		return c
	}

	c, ok := r.AddressCoordinates(ctx, text)
	if !ok {
		c, ok = r.CityCoordinates(ctx, text)
	}
	if !ok {
		zap.L().Info("no coordinates found, using fallback", zap.String("text", text))
		return r.fallback
	}

	r.remember(ctx, key, c)
	return c
}

func (r *Resolver) cached(ctx context.Context, key string) (domain.Coordinates, bool) {
	if r.cache == nil {
		return domain.Coordinates{}, false
	}
	hits, err := r.cache.GetMany(ctx, []string{key})
	if err != nil {
		zap.L().Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
		return domain.Coordinates{}, false
	}
	c, ok := hits[key]
	return c, ok
}

func (r *Resolver) remember(ctx context.Context, key string, c domain.Coordinates) {
	if r.cache == nil {
		return
	}
	if err := r.cache.PutMany(ctx, map[string]domain.Coordinates{key: c}); err != nil {
		zap.L().Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// normalize folds case and whitespace so equivalent queries share a cache entry.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
