package handlers

import (
	"commute-area-service/internal/api/dto"
	"commute-area-service/internal/domain"
	"commute-area-service/internal/services/commute"
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AreaManager is the commute-area state the handlers operate on.
type AreaManager interface {
	Snapshot() commute.State
	Area(id string) (domain.CommuteArea, bool)
	AddArea(ctx context.Context, loc domain.Location, mode domain.TransportMode, minutes int) (domain.CommuteArea, error)
	UpdateArea(ctx context.Context, id string, mode domain.TransportMode, minutes int) (domain.CommuteArea, error)
	RemoveArea(ctx context.Context, id string) bool
	ClearAllAreas(ctx context.Context)
}

// CoordinateResolver turns free text into a location. It never fails.
type CoordinateResolver interface {
	CoordinatesWithFallback(ctx context.Context, text string) domain.Coordinates
}

type AreaHandler struct {
	Manager  AreaManager
	Resolver CoordinateResolver
}

// List returns every area plus the loading and error state.
func (h *AreaHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.FromState(h.Manager.Snapshot()))
}

// Create geocodes the address when no coordinates are given, then adds the area.
func (h *AreaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAreaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Address = strings.TrimSpace(req.Address)
	if err := dto.Validate(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var coords domain.Coordinates
	if req.Lat != nil && req.Lng != nil {
		coords = domain.Coordinates{Lat: *req.Lat, Lng: *req.Lng}
	} else {
		coords = h.Resolver.CoordinatesWithFallback(r.Context(), req.Address)
	}

	loc := domain.Location{Address: req.Address, Coordinates: coords}
	area, err := h.Manager.AddArea(r.Context(), loc, domain.TransportMode(req.Mode), req.TimeInMinutes)
	if err != nil {
		writeOperationError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.FromArea(area))
}

func (h *AreaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdateAreaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := dto.Validate(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	area, err := h.Manager.UpdateArea(r.Context(), id, domain.TransportMode(req.Mode), req.TimeInMinutes)
	if err != nil {
		writeOperationError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromArea(area))
}

// Delete is idempotent: unknown ids also answer 204.
func (h *AreaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.Manager.RemoveArea(r.Context(), id) {
		zap.L().Debug("remove of unknown area", zap.String("id", id))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AreaHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.Manager.ClearAllAreas(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Bounds returns the bounding box of an area's geometry for map fitting.
func (h *AreaHandler) Bounds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	area, ok := h.Manager.Area(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, commute.ErrAreaNotFound.Error())
		return
	}

	b, err := domain.BoundsOf(area.GeoJSON)
	if err != nil {
		zap.L().Warn("area geometry has no bounds", zap.String("id", id), zap.Error(err))
		writeError(w, r, http.StatusUnprocessableEntity, "area geometry has no bounds")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromBounds(b))
}
