package dto

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/services/commute"
	"encoding/json"
)

type CoordinatesDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func FromCoordinates(c domain.Coordinates) CoordinatesDTO {
	return CoordinatesDTO{Lat: c.Lat, Lng: c.Lng}
}

type LocationDTO struct {
	Address     string         `json:"address"`
	Coordinates CoordinatesDTO `json:"coordinates"`
}

// CreateAreaRequest adds an area. Without lat/lng the address is geocoded.
type CreateAreaRequest struct {
	Address       string   `json:"address" validate:"required,max=500"`
	Lat           *float64 `json:"lat" validate:"required_with=Lng,omitempty,gte=-90,lte=90"`
	Lng           *float64 `json:"lng" validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
	Mode          string   `json:"mode" validate:"required,oneof=drive walk bicycle transit"`
	TimeInMinutes int      `json:"timeInMinutes" validate:"required,min=1,max=60"`
}

type UpdateAreaRequest struct {
	Mode          string `json:"mode" validate:"required,oneof=drive walk bicycle transit"`
	TimeInMinutes int    `json:"timeInMinutes" validate:"required,min=1,max=60"`
}

type AreaResponse struct {
	ID            string          `json:"id"`
	Location      LocationDTO     `json:"location"`
	Mode          string          `json:"mode"`
	TimeInMinutes int             `json:"timeInMinutes"`
	TravelTime    string          `json:"travelTime"`
	Label         string          `json:"label"`
	GeoJSON       json.RawMessage `json:"geoJSON"`
	Color         string          `json:"color"`
	CreatedAt     string          `json:"createdAt"`
}

func FromArea(a domain.CommuteArea) AreaResponse {
	return AreaResponse{
		ID: a.ID,
		Location: LocationDTO{
			Address:     a.Location.Address,
			Coordinates: FromCoordinates(a.Location.Coordinates),
		},
		Mode:          string(a.Mode),
		TimeInMinutes: a.TimeInMinutes,
		TravelTime:    domain.FormatTravelTime(a.TimeInMinutes),
		Label:         a.Label(),
		GeoJSON:       a.GeoJSON,
		Color:         a.Color,
		CreatedAt:     a.CreatedAt.UTC().Format(commute.CreatedAtLayout),
	}
}

// AreasResponse mirrors the manager state. Error is null when there is none.
type AreasResponse struct {
	Areas     []AreaResponse `json:"areas"`
	IsLoading bool           `json:"isLoading"`
	Error     *string        `json:"error"`
}

func FromState(st commute.State) AreasResponse {
	res := AreasResponse{
		Areas:     make([]AreaResponse, 0, len(st.Areas)),
		IsLoading: st.IsLoading,
	}
	for _, a := range st.Areas {
		res.Areas = append(res.Areas, FromArea(a))
	}
	if st.Error != "" {
		msg := st.Error
		res.Error = &msg
	}
	return res
}

type BoundsResponse struct {
	South  float64        `json:"south"`
	West   float64        `json:"west"`
	North  float64        `json:"north"`
	East   float64        `json:"east"`
	Center CoordinatesDTO `json:"center"`
}

func FromBounds(b domain.Bounds) BoundsResponse {
	return BoundsResponse{
		South:  b.South,
		West:   b.West,
		North:  b.North,
		East:   b.East,
		Center: FromCoordinates(b.Center()),
	}
}

// PreviewRequest asks for several isochrones around one point without storing them.
type PreviewRequest struct {
	Lat            float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng            float64 `json:"lng" validate:"gte=-180,lte=180"`
	Mode           string  `json:"mode" validate:"required,oneof=drive walk bicycle transit"`
	TimesInMinutes []int   `json:"timesInMinutes" validate:"required,min=1,max=8,dive,min=1,max=60"`
}

type PreviewIsochrone struct {
	TimeInMinutes int             `json:"timeInMinutes"`
	GeoJSON       json.RawMessage `json:"geoJSON"`
}

type PreviewResponse struct {
	Mode       string             `json:"mode"`
	Isochrones []PreviewIsochrone `json:"isochrones"`
}
