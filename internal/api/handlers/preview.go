package handlers

import (
	"commute-area-service/internal/api/dto"
	"commute-area-service/internal/domain"
	"commute-area-service/internal/ports"
	"net/http"
)

type PreviewHandler struct {
	Provider ports.IsochroneBatchProvider
}

// Preview fetches several isochrones around one point. Nothing is stored.
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req dto.PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := dto.Validate(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if !h.Provider.Configured() {
		writeOperationError(w, r, ports.ErrIsochroneNotConfigured)
		return
	}

	ranges := make([]int, len(req.TimesInMinutes))
	for i, m := range req.TimesInMinutes {
		ranges[i] = m * 60
	}

	origin := domain.Coordinates{Lat: req.Lat, Lng: req.Lng}
	mode := domain.TransportMode(req.Mode)

	results, err := h.Provider.GetIsochrones(r.Context(), origin, mode, ranges)
	if err != nil {
		writeOperationError(w, r, err)
		return
	}

	res := dto.PreviewResponse{Mode: req.Mode, Isochrones: make([]dto.PreviewIsochrone, 0, len(results))}
	for i, geo := range results {
		res.Isochrones = append(res.Isochrones, dto.PreviewIsochrone{
			TimeInMinutes: req.TimesInMinutes[i],
			GeoJSON:       geo,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}
