package handlers

import (
	"commute-area-service/internal/api/dto"
	"commute-area-service/internal/domain"
	"context"
	"net/http"
	"strings"
)

// SoftSearcher runs address and commune searches that never fail; a broken
// collaborator yields no results.
type SoftSearcher interface {
	SearchAddressesSoft(ctx context.Context, query string) []domain.AddressCandidate
	SearchCitiesSoft(ctx context.Context, query string, limit int) []domain.City
}

type SearchHandler struct {
	Searcher  SoftSearcher
	CityLimit int
}

func (h *SearchHandler) Addresses(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	res := h.Searcher.SearchAddressesSoft(r.Context(), q)

	writeJSON(w, r, http.StatusOK, dto.AddressSearchResponse{
		Query:   q,
		Results: dto.FromAddressCandidates(res),
	})
}

func (h *SearchHandler) Cities(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	res := h.Searcher.SearchCitiesSoft(r.Context(), q, h.CityLimit)
	if res == nil {
		res = []domain.City{}
	}

	writeJSON(w, r, http.StatusOK, dto.CitySearchResponse{Query: q, Results: res})
}
