package isochrone

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/platform/httpx"
	"commute-area-service/internal/platform/obs"
	"commute-area-service/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	DefaultBaseURL = "https://api.geoapify.com"
	// placeholderKey ships in sample env files and is never a real key.
	placeholderKey = "your-api-key-here"
)

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// GeoapifyProvider implements IsochroneProvider using the Geoapify Isoline API.
//
// Requests are never retried: a failed lookup is surfaced to the caller as-is.
// The provider is safe for concurrent use.
type GeoapifyProvider struct {
	client  *httpx.Client
	apiKey  string
	baseURL string
}

type GeoapifyOption func(*GeoapifyProvider)

// WithBaseURL points the provider at another host (tests, proxies).
func WithBaseURL(u string) GeoapifyOption {
	return func(p *GeoapifyProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithClient replaces the HTTP client.
func WithClient(c *httpx.Client) GeoapifyOption {
	return func(p *GeoapifyProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// NewGeoapifyProvider builds a provider. An empty key yields an unconfigured
// provider rather than an error so the service can still start.
func NewGeoapifyProvider(apiKey string, opts ...GeoapifyOption) *GeoapifyProvider {
	p := &GeoapifyProvider{
		client:  httpx.New(httpx.WithRateLimit(5)),
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GeoapifyProvider) Configured() bool {
	return p.apiKey != "" && p.apiKey != placeholderKey
}

// GetIsochrone fetches the isoline for one origin and range.
func (p *GeoapifyProvider) GetIsochrone(
	ctx context.Context,
	req ports.IsochroneRequest,
) (_ json.RawMessage, err error) {
	defer obs.Time(ctx, "geoapify.GetIsochrone")(&err)

	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	httpReq, err := p.client.NewRequest(ctx, http.MethodGet, p.baseURL+"/v1/isoline", nil)
	if err != nil {
		return nil, eris.Wrap(err, "geoapify isoline request")
	}
	httpReq.URL.RawQuery = p.query(req).Encode()

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providerError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geoapify: read isoline response")
	}

	// Anything that is not a FeatureCollection of geometries is a provider fault.
	if _, err := domain.DecodeFeatureCollection(body); err != nil {
		return nil, eris.Wrap(err, "geoapify: malformed isoline response")
	}

	return json.RawMessage(body), nil
}

func (p *GeoapifyProvider) query(req ports.IsochroneRequest) url.Values {
	rangeType := req.RangeType
	if rangeType == "" {
		rangeType = ports.RangeTime
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(req.Origin.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(req.Origin.Lng, 'f', -1, 64))
	q.Set("type", string(rangeType))
	q.Set("mode", geoapifyMode(req.Mode))
	q.Set("range", strconv.Itoa(req.Range))
	q.Set("apiKey", p.apiKey)
	q.Set("format", "geojson")
	return q
}

func validateRequest(req ports.IsochroneRequest) error {
	if err := req.Origin.Validate(); err != nil {
		return eris.Wrap(err, "isochrone request")
	}
	if req.Range <= 0 {
		return eris.Errorf("isochrone request: range must be positive, got %d", req.Range)
	}
	if (req.RangeType == "" || req.RangeType == ports.RangeTime) && req.Range > domain.MaxRangeSeconds {
		return ErrRangeExceeded
	}
	return nil
}

// Geoapify uses the same names for every supported mode; unknown modes fall back to driving.
func geoapifyMode(m domain.TransportMode) string {
	if m.Valid() {
		return string(m)
	}
	return string(domain.ModeDrive)
}

// providerError turns an upstream failure into an error carrying the provider's own message.
func providerError(err error) error {
	var se *httpx.StatusError
	if errors.As(err, &se) {
		var ae apiError
		if json.Unmarshal([]byte(se.Body), &ae) == nil && ae.Error.Message != "" {
			return eris.Errorf("Geoapify API error: %s", ae.Error.Message)
		}
		return eris.Errorf("Geoapify API error: status %d", se.Code)
	}
	return eris.Wrap(err, "Geoapify request failed")
}
