package isochrone

import "commute-area-service/internal/ports"

var (
	// ErrNotConfigured is returned when no usable API key is set.
	ErrNotConfigured = ports.ErrIsochroneNotConfigured
	// ErrRangeExceeded is returned for time ranges above the provider ceiling.
	ErrRangeExceeded = ports.ErrRangeExceeded
)
