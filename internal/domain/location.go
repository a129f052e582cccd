package domain

// A human label attached to the coordinates it was resolved to.
// The address is never re-geocoded once the location belongs to an area.
type Location struct {
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
}
