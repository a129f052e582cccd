package ports

import "github.com/rotisserie/eris"

// Sentinel failures shared by isochrone providers and their callers.
var (
	ErrIsochroneNotConfigured = eris.New("isochrone service not configured: missing Geoapify API key")
	ErrRangeExceeded          = eris.New("maximum allowed duration is 60 minutes (3600 seconds)")
)
