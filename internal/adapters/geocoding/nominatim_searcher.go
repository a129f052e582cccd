package geocoding

import (
	"commute-area-service/internal/domain"
	"commute-area-service/internal/platform/httpx"
	"commute-area-service/internal/platform/obs"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "commute-area-service/1.0"

	minAddressQueryLen = 3
	addressResultLimit = 5
)

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NominatimSearcher implements ports.AddressSearcher against an OpenStreetMap
// Nominatim instance. Searches are restricted to France.
type NominatimSearcher struct {
	client  *httpx.Client
	baseURL string
}

type NominatimOption func(*NominatimSearcher)

func WithNominatimURL(u string) NominatimOption {
	return func(n *NominatimSearcher) {
		if u != "" {
			n.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithNominatimClient(c *httpx.Client) NominatimOption {
	return func(n *NominatimSearcher) {
		if c != nil {
			n.client = c
		}
	}
}

// NewNominatimSearcher builds a searcher that honours the public instance's
// usage policy: an identifying User-Agent and at most one request per second.
func NewNominatimSearcher(opts ...NominatimOption) *NominatimSearcher {
	n := &NominatimSearcher{
		client: httpx.New(
			httpx.WithUserAgent(DefaultUserAgent),
			httpx.WithRateLimit(1),
			httpx.WithCircuitBreaker("nominatim"),
		),
		baseURL: DefaultNominatimURL,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SearchAddresses returns up to five suggestions for query. Queries shorter
// than three characters return no results without calling the service.
func (n *NominatimSearcher) SearchAddresses(
	ctx context.Context,
	query string,
) (_ []domain.AddressCandidate, err error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minAddressQueryLen {
		return []domain.AddressCandidate{}, nil
	}

	defer obs.Time(ctx, "nominatim.SearchAddresses")(&err)

	endpoint := n.baseURL + "/search"
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(addressResultLimit))
	params.Set("addressdetails", "1")
	params.Set("countrycodes", "fr")

	resp, err := n.client.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := n.client.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = params.Encode()
		return req, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "nominatim search")
	}
	defer resp.Body.Close()

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, eris.Wrap(err, "nominatim: decode search response")
	}

	out := make([]domain.AddressCandidate, 0, len(places))
	for _, p := range places {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lng, errLng := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		c := domain.Coordinates{Lat: lat, Lng: lng}
		if !c.Valid() {
			continue
		}
		out = append(out, domain.AddressCandidate{Address: p.DisplayName, Coordinates: c})
	}
	return out, nil
}
