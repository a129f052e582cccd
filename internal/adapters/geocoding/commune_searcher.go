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
	DefaultCommunesURL = "https://geo.api.gouv.fr"
	DefaultCityLimit   = 5

	minCityQueryLen = 2
	communeFields   = "nom,code,codeDepartement,codeRegion,codesPostaux,population"
)

// CommuneSearcher implements ports.CitySearcher against the French public
// commune directory (geo.api.gouv.fr).
type CommuneSearcher struct {
	client  *httpx.Client
	baseURL string
}

type CommuneOption func(*CommuneSearcher)

func WithCommunesURL(u string) CommuneOption {
	return func(c *CommuneSearcher) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithCommunesClient(hc *httpx.Client) CommuneOption {
	return func(c *CommuneSearcher) {
		if hc != nil {
			c.client = hc
		}
	}
}

func NewCommuneSearcher(opts ...CommuneOption) *CommuneSearcher {
	c := &CommuneSearcher{
		client:  httpx.New(httpx.WithCircuitBreaker("communes")),
		baseURL: DefaultCommunesURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchCities looks communes up by name. Queries shorter than two characters
// return no results. A limit of zero or less uses DefaultCityLimit.
func (c *CommuneSearcher) SearchCities(
	ctx context.Context,
	query string,
	limit int,
) (_ []domain.City, err error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minCityQueryLen {
		return []domain.City{}, nil
	}
	if limit <= 0 {
		limit = DefaultCityLimit
	}

	defer obs.Time(ctx, "communes.SearchCities")(&err)

	endpoint := c.baseURL + "/communes"
	params := url.Values{}
	params.Set("nom", query)
	params.Set("fields", communeFields)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))

	resp, err := c.client.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := c.client.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = params.Encode()
		return req, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "commune search")
	}
	defer resp.Body.Close()

	var cities []domain.City
	if err := json.NewDecoder(resp.Body).Decode(&cities); err != nil {
		return nil, eris.Wrap(err, "communes: decode search response")
	}
	for i := range cities {
		if cities[i].PostalCodes == nil {
			cities[i].PostalCodes = []string{}
		}
	}
	if cities == nil {
		cities = []domain.City{}
	}
	return cities, nil
}
