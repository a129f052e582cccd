package isochrone

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const polygonFC = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"mode":"drive","range":1800,"range_type":"time"},"geometry":{"type":"Polygon","coordinates":[[[2.0,48.5],[2.7,48.5],[2.7,49.1],[2.0,49.1],[2.0,48.5]]]}}]}`

func parisRequest(seconds int) ports.IsochroneRequest {
	return ports.IsochroneRequest{
		Origin:    domain.Paris,
		Mode:      domain.ModeDrive,
		Range:     seconds,
		RangeType: ports.RangeTime,
	}
}

func TestGeoapifyGetIsochrone(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/isoline", r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, polygonFC)
	}))
	defer srv.Close()

	p := NewGeoapifyProvider("test-key", WithBaseURL(srv.URL))
	res, err := p.GetIsochrone(context.Background(), parisRequest(1800))
	require.NoError(t, err)
	assert.JSONEq(t, polygonFC, string(res))

	assert.Equal(t, map[string]string{
		"lat":    "48.8566",
		"lon":    "2.3522",
		"type":   "time",
		"mode":   "drive",
		"range":  "1800",
		"apiKey": "test-key",
		"format": "geojson",
	}, gotQuery)
}

func TestGeoapifyRejectsRangeAboveCeilingWithoutCalling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, polygonFC)
	}))
	defer srv.Close()

	p := NewGeoapifyProvider("test-key", WithBaseURL(srv.URL))
	_, err := p.GetIsochrone(context.Background(), parisRequest(3601))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRangeExceeded))
	assert.Contains(t, err.Error(), "60 minutes")
	assert.Equal(t, int32(0), calls.Load())

	// Distance ranges are not bound by the time ceiling.
	req := parisRequest(5000)
	req.RangeType = ports.RangeDistance
	_, err = p.GetIsochrone(context.Background(), req)
	require.NoError(t, err)
}

func TestGeoapifyNotConfigured(t *testing.T) {
	for _, key := range []string{"", "  ", "your-api-key-here"} {
		p := NewGeoapifyProvider(key)
		assert.False(t, p.Configured(), "key %q", key)

		_, err := p.GetIsochrone(context.Background(), parisRequest(600))
		assert.True(t, errors.Is(err, ErrNotConfigured))
	}
	assert.True(t, NewGeoapifyProvider("real").Configured())
}

func TestGeoapifySurfacesProviderMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"Bad Request","message":"\"lat\" must be a number"}}`)
	}))
	defer srv.Close()

	p := NewGeoapifyProvider("k", WithBaseURL(srv.URL))
	_, err := p.GetIsochrone(context.Background(), parisRequest(600))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Geoapify API error: "lat" must be a number`)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeoapifyDoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewGeoapifyProvider("k", WithBaseURL(srv.URL))
	_, err := p.GetIsochrone(context.Background(), parisRequest(600))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeoapifyRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"type":"Feature"`)
	}))
	defer srv.Close()

	p := NewGeoapifyProvider("k", WithBaseURL(srv.URL))
	_, err := p.GetIsochrone(context.Background(), parisRequest(600))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed isoline response")
}

func TestGeoapifyGetIsochronesKeepsOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rng := r.URL.Query().Get("range")
		_, _ = io.WriteString(w, `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"range":`+rng+`},"geometry":{"type":"Point","coordinates":[2.35,48.85]}}]}`)
	}))
	defer srv.Close()

	p := NewGeoapifyProvider("k", WithBaseURL(srv.URL))
	res, err := p.GetIsochrones(context.Background(), domain.Paris, domain.ModeWalk, []int{300, 600, 900})
	require.NoError(t, err)
	require.Len(t, res, 3)

	for i, want := range []float64{300, 600, 900} {
		var fc struct {
			Features []struct {
				Properties map[string]float64 `json:"properties"`
			} `json:"features"`
		}
		require.NoError(t, json.Unmarshal(res[i], &fc))
		assert.Equal(t, want, fc.Features[0].Properties["range"])
	}
}

func TestGetIsochronesFailsWholeBatch(t *testing.T) {
	p := NewStubProvider()
	_, err := p.GetIsochrones(context.Background(), domain.Paris, domain.ModeDrive, []int{600, 4000})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRangeExceeded))
}
