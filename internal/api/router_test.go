package api

import (
	"commute-area-service/internal/adapters/isochrone"
	"commute-area-service/internal/adapters/kvstore"
	"commute-area-service/internal/api/dto"
	"commute-area-service/internal/domain"
	"commute-area-service/internal/platform/obs"
	"commute-area-service/internal/services/commute"
	"commute-area-service/internal/services/geocoding"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lyonCoords = domain.Coordinates{Lat: 45.764, Lng: 4.8357}

type stubAddresses struct {
	err error
}

func (s *stubAddresses) SearchAddresses(_ context.Context, q string) ([]domain.AddressCandidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	if strings.Contains(strings.ToLower(q), "lyon") {
		return []domain.AddressCandidate{{Address: "Lyon, Rhône, France", Coordinates: lyonCoords}}, nil
	}
	return []domain.AddressCandidate{}, nil
}

type stubCities struct{}

func (stubCities) SearchCities(_ context.Context, q string, _ int) ([]domain.City, error) {
	if strings.HasPrefix(strings.ToLower(q), "ly") {
		return []domain.City{{Name: "Lyon", Code: "69123", DepartmentCode: "69", RegionCode: "84", PostalCodes: []string{"69001"}, Population: 522250}}, nil
	}
	return []domain.City{}, nil
}

type testServer struct {
	handler  http.Handler
	manager  *commute.Manager
	provider *isochrone.StubProvider
	store    *kvstore.MemoryStore
}

func newTestServer(t *testing.T, addresses *stubAddresses) *testServer {
	t.Helper()

	store := kvstore.NewMemoryStore()
	provider := isochrone.NewStubProvider()
	metrics := obs.NewMetrics("test")
	manager := commute.NewManager(store, provider, commute.WithMetrics(metrics))
	manager.Initialize(context.Background())

	resolver := geocoding.NewResolver(addresses, stubCities{})

	h := NewRouter(Deps{
		Manager:     manager,
		Resolver:    resolver,
		Searcher:    resolver,
		Addresses:   addresses,
		Cities:      stubCities{},
		Preview:     provider,
		Metrics:     metrics,
		CityLimit:   5,
		SearchDelay: 50 * time.Millisecond,
	})
	return &testServer{handler: h, manager: manager, provider: provider, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})
	rec := s.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAreaLifecycle(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})

	rec := s.do(t, http.MethodPost, "/areas", `{"address":"Paris","lat":48.8566,"lng":2.3522,"mode":"drive","timeInMinutes":30}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[dto.AreaResponse](t, rec)
	assert.Equal(t, domain.Palette[0], created.Color)
	assert.Equal(t, "Paris (30min)", created.Label)
	assert.Equal(t, "30 min", created.TravelTime)
	assert.Equal(t, dto.CoordinatesDTO{Lat: 48.8566, Lng: 2.3522}, created.Location.Coordinates)

	rec = s.do(t, http.MethodGet, "/areas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[dto.AreasResponse](t, rec)
	require.Len(t, list.Areas, 1)
	assert.Nil(t, list.Error)
	assert.False(t, list.IsLoading)

	rec = s.do(t, http.MethodPatch, "/areas/"+created.ID, `{"mode":"walk","timeInMinutes":45}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[dto.AreaResponse](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Color, updated.Color)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "walk", updated.Mode)
	assert.Equal(t, 45, updated.TimeInMinutes)

	rec = s.do(t, http.MethodGet, "/areas/"+created.ID+"/bounds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode[dto.BoundsResponse](t, rec)
	assert.Less(t, b.South, 48.8566)
	assert.Greater(t, b.North, 48.8566)
	assert.InDelta(t, 48.8566, b.Center.Lat, 1e-9)
	assert.InDelta(t, 2.3522, b.Center.Lng, 1e-9)

	rec = s.do(t, http.MethodDelete, "/areas/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/areas/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Empty(t, s.manager.Snapshot().Areas)
	assert.Empty(t, s.store.Keys())
}

func TestCreateAreaGeocodesAddress(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})

	rec := s.do(t, http.MethodPost, "/areas", `{"address":"Lyon","mode":"bicycle","timeInMinutes":20}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	area := decode[dto.AreaResponse](t, rec)
	assert.Equal(t, dto.FromCoordinates(lyonCoords), area.Location.Coordinates)
	assert.Equal(t, "Lyon", area.Location.Address)

	// Unknown places fall back to Paris.
	rec = s.do(t, http.MethodPost, "/areas", `{"address":"Atlantis","mode":"drive","timeInMinutes":20}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	area = decode[dto.AreaResponse](t, rec)
	assert.Equal(t, dto.FromCoordinates(domain.Paris), area.Location.Coordinates)
	assert.Equal(t, domain.Palette[1], area.Color)
}

func TestCreateAreaValidation(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})

	for name, body := range map[string]string{
		"bad json":        `{"address":`,
		"unknown field":   `{"address":"Paris","mode":"drive","timeInMinutes":30,"foo":1}`,
		"no address":      `{"address":"  ","mode":"drive","timeInMinutes":30}`,
		"bad mode":        `{"address":"Paris","mode":"plane","timeInMinutes":30}`,
		"too long":        `{"address":"Paris","mode":"drive","timeInMinutes":61}`,
		"zero minutes":    `{"address":"Paris","mode":"drive","timeInMinutes":0}`,
		"lat without lng": `{"address":"Paris","lat":48.8,"mode":"drive","timeInMinutes":30}`,
		"lat range":       `{"address":"Paris","lat":98.8,"lng":2,"mode":"drive","timeInMinutes":30}`,
		"two objects":     `{"address":"Paris","mode":"drive","timeInMinutes":30}{}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/areas", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
	assert.Empty(t, s.provider.Requests())
}

func TestOperationErrorMapping(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})

	rec := s.do(t, http.MethodPatch, "/areas/missing", `{"mode":"walk","timeInMinutes":10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"zone not found"}`, rec.Body.String())

	list := decode[dto.AreasResponse](t, s.do(t, http.MethodGet, "/areas", ""))
	require.NotNil(t, list.Error)
	assert.Equal(t, "zone not found", *list.Error)

	rec = s.do(t, http.MethodGet, "/areas/missing/bounds", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.provider.FailWith(errors.New("Geoapify API error: upstream exploded"))
	rec = s.do(t, http.MethodPost, "/areas", `{"address":"Paris","lat":48.8566,"lng":2.3522,"mode":"drive","timeInMinutes":30}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"Geoapify API error: upstream exploded"}`, rec.Body.String())

	s.provider.FailWith(nil)
	s.provider.SetConfigured(false)
	rec = s.do(t, http.MethodPost, "/areas", `{"address":"Paris","lat":48.8566,"lng":2.3522,"mode":"drive","timeInMinutes":30}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, s.manager.Snapshot().Areas)
}

func TestClearAreas(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})
	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodPost, "/areas", `{"address":"Paris","lat":48.8566,"lng":2.3522,"mode":"drive","timeInMinutes":10}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.do(t, http.MethodDelete, "/areas", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.manager.Snapshot().Areas)
	assert.Empty(t, s.store.Keys())
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})

	rec := s.do(t, http.MethodPost, "/isochrones/preview", `{"lat":48.8566,"lng":2.3522,"mode":"walk","timesInMinutes":[10,20,30]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[dto.PreviewResponse](t, rec)
	require.Len(t, res.Isochrones, 3)
	assert.Equal(t, 20, res.Isochrones[1].TimeInMinutes)
	assert.Empty(t, s.manager.Snapshot().Areas, "previews are not stored")

	rec = s.do(t, http.MethodPost, "/isochrones/preview", `{"lat":48.8566,"lng":2.3522,"mode":"walk","timesInMinutes":[90]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoints(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})

	rec := s.do(t, http.MethodGet, "/search/addresses?q=lyon", "")
	require.Equal(t, http.StatusOK, rec.Code)
	addrs := decode[dto.AddressSearchResponse](t, rec)
	require.Len(t, addrs.Results, 1)
	assert.Equal(t, "Lyon, Rhône, France", addrs.Results[0].Address)

	rec = s.do(t, http.MethodGet, "/search/cities?q=ly", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cities := decode[dto.CitySearchResponse](t, rec)
	require.Len(t, cities.Results, 1)
	assert.Equal(t, "69123", cities.Results[0].Code)
}

func TestAddressSearchFailsSoft(t *testing.T) {
	s := newTestServer(t, &stubAddresses{err: errors.New("nominatim down")})

	rec := s.do(t, http.MethodGet, "/search/addresses?q=lyon", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"lyon","results":[]}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})
	s.do(t, http.MethodGet, "/health", "")

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestSearchSocket(t *testing.T) {
	s := newTestServer(t, &stubAddresses{})
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/search"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// A burst of keystrokes is answered once, for the last query.
	for _, q := range []string{"l", "ly", "lyo", "lyon"} {
		require.NoError(t, conn.WriteJSON(dto.SearchRequest{Kind: "address", Query: q}))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg struct {
		Kind    string              `json:"kind"`
		Query   string              `json:"query"`
		Results []dto.AddressResult `json:"results"`
		Error   *string             `json:"error"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "address", msg.Kind)
	assert.Equal(t, "lyon", msg.Query)
	require.Len(t, msg.Results, 1)
	assert.Nil(t, msg.Error)

	require.NoError(t, conn.WriteJSON(dto.SearchRequest{Kind: "planet", Query: "mars"}))
	var bad dto.SearchMessage
	require.NoError(t, conn.ReadJSON(&bad))
	require.NotNil(t, bad.Error)
	assert.Equal(t, "unknown search kind", *bad.Error)
}
