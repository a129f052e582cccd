package api

import (
	"commute-area-service/internal/api/handlers"
	"commute-area-service/internal/platform/obs"
	"commute-area-service/internal/ports"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Manager   handlers.AreaManager
	Resolver  handlers.CoordinateResolver
	Searcher  handlers.SoftSearcher
	Addresses ports.AddressSearcher
	Cities    ports.CitySearcher
	Preview   ports.IsochroneBatchProvider
	Metrics   *obs.Metrics

	CORSOrigins []string
	CityLimit   int
	SearchDelay time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(d.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	areaHandler := &handlers.AreaHandler{Manager: d.Manager, Resolver: d.Resolver}
	previewHandler := &handlers.PreviewHandler{Provider: d.Preview}
	searchHandler := &handlers.SearchHandler{Searcher: d.Searcher, CityLimit: d.CityLimit}
	socket := &handlers.SearchSocket{
		Addresses:   d.Addresses,
		Cities:      d.Cities,
		CityLimit:   d.CityLimit,
		Delay:       d.SearchDelay,
		Metrics:     d.Metrics,
		CheckOrigin: originChecker(origins),
	}

	r.Get("/health", handlers.Health)

	r.Route("/areas", func(r chi.Router) {
		r.Get("/", areaHandler.List)
		r.Post("/", areaHandler.Create)
		r.Delete("/", areaHandler.Clear)
		r.Patch("/{id}", areaHandler.Update)
		r.Delete("/{id}", areaHandler.Delete)
		r.Get("/{id}/bounds", areaHandler.Bounds)
	})

	r.Post("/isochrones/preview", previewHandler.Preview)

	r.Get("/search/addresses", searchHandler.Addresses)
	r.Get("/search/cities", searchHandler.Cities)
	r.Get("/ws/search", socket.Serve)

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	return r
}

// originChecker allows websocket upgrades from the configured CORS origins.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
