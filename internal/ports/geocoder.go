package ports

import (
	"commute-area-service/internal/domain"
	"context"
)

// Free-text address lookup.
//
// An empty result with a nil error means nothing matched; a non-nil error
// means the collaborator itself failed.
type AddressSearcher interface {
	SearchAddresses(ctx context.Context, query string) ([]domain.AddressCandidate, error)
}

// Commune directory lookup by name.
type CitySearcher interface {
	SearchCities(ctx context.Context, query string, limit int) ([]domain.City, error)
}
