package dto

import "commute-area-service/internal/domain"

type AddressResult struct {
	Address     string         `json:"address"`
	Coordinates CoordinatesDTO `json:"coordinates"`
}

func FromAddressCandidates(in []domain.AddressCandidate) []AddressResult {
	out := make([]AddressResult, 0, len(in))
	for _, c := range in {
		out = append(out, AddressResult{Address: c.Address, Coordinates: FromCoordinates(c.Coordinates)})
	}
	return out
}

type AddressSearchResponse struct {
	Query   string          `json:"query"`
	Results []AddressResult `json:"results"`
}

type CitySearchResponse struct {
	Query   string        `json:"query"`
	Results []domain.City `json:"results"`
}

// Search kinds accepted on the autocomplete socket.
const (
	SearchKindAddress = "address"
	SearchKindCity    = "city"
)

// SearchRequest is a client message on the autocomplete socket.
type SearchRequest struct {
	Kind  string `json:"kind"`
	Query string `json:"query"`
}

// SearchMessage is pushed to the client for the freshest query of a kind.
type SearchMessage struct {
	Kind    string  `json:"kind"`
	Query   string  `json:"query"`
	Results any     `json:"results"`
	Error   *string `json:"error"`
}
