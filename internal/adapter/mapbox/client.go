package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
)

const (
	// DefaultBaseURL is the Mapbox API root.
	DefaultBaseURL = "https://api.mapbox.com"

	searchLimit = 5
	searchTypes = "place,locality,neighborhood,address,poi"
)

// Client implements domain.Geocoder and domain.DirectionsProvider using the
// Mapbox Geocoding and Directions APIs.
type Client struct {
	token      string
	country    string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox client. Search results are limited to country
// (ISO 3166 alpha-2, empty for worldwide).
func NewClient(token, country string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:   token,
		country: country,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: DefaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Directions fetches driving, walking, or cycling alternatives between two points.
func (c *Client) Directions(ctx context.Context, origin, destination domain.Point, mode string) ([]domain.RouteAlternative, error) {
	// Mapbox uses lon,lat order.
	coords := fmt.Sprintf("%s,%s;%s,%s",
		formatCoord(origin.Longitude), formatCoord(origin.Latitude),
		formatCoord(destination.Longitude), formatCoord(destination.Latitude))
	u := fmt.Sprintf("%s/directions/v5/mapbox/%s/%s", c.baseURL, url.PathEscape(mode), coords)
	params := url.Values{
		"access_token": {c.token},
		"geometries":   {"geojson"},
		"steps":        {"true"},
		"alternatives": {"true"},
	}

	var resp directionsResponse
	if err := c.doRequest(ctx, u+"?"+params.Encode(), "directions", &resp); err != nil {
		return nil, err
	}
	if resp.Code == "NoRoute" || resp.Code == "NoSegment" || len(resp.Routes) == 0 {
		c.metrics.MapboxRequests.WithLabelValues("directions", "empty").Inc()
		return nil, domain.ErrNoRoute
	}
	c.metrics.MapboxRequests.WithLabelValues("directions", "success").Inc()

	out := make([]domain.RouteAlternative, len(resp.Routes))
	for i, r := range resp.Routes {
		var steps []json.RawMessage
		if len(r.Legs) > 0 {
			steps = r.Legs[0].Steps
		}
		out[i] = domain.RouteAlternative{
			Geometry: r.Geometry,
			Distance: r.Distance,
			Duration: r.Duration,
			Steps:    steps,
		}
	}
	return out, nil
}

// Search returns up to five places matching query, biased towards near.
func (c *Client) Search(ctx context.Context, query string, near domain.Point) ([]domain.Place, error) {
	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {strconv.Itoa(searchLimit)},
		"proximity":    {formatCoord(near.Longitude) + "," + formatCoord(near.Latitude)},
		"types":        {searchTypes},
	}
	if c.country != "" {
		params.Set("country", c.country)
	}

	var resp geocodingResponse
	if err := c.doRequest(ctx, u+"?"+params.Encode(), "search", &resp); err != nil {
		return nil, err
	}

	places := make([]domain.Place, 0, len(resp.Features))
	for _, f := range resp.Features {
		places = append(places, f.place())
	}
	outcome := "success"
	if len(places) == 0 {
		outcome = "empty"
	}
	c.metrics.MapboxRequests.WithLabelValues("search", outcome).Inc()
	return places, nil
}

// ReverseGeocode converts coordinates to the best matching place.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}

	var resp geocodingResponse
	if err := c.doRequest(ctx, u+"?"+params.Encode(), "reverse", &resp); err != nil {
		return domain.Place{}, err
	}
	if len(resp.Features) == 0 {
		c.metrics.MapboxRequests.WithLabelValues("reverse", "empty").Inc()
		return domain.Place{}, nil
	}
	c.metrics.MapboxRequests.WithLabelValues("reverse", "success").Inc()
	return resp.Features[0].place(), nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, method string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.MapboxAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.MapboxRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.metrics.MapboxRequests.WithLabelValues(method, "error").Inc()
		c.logger.Warn("mapbox API error", "method", method, "status", resp.StatusCode)
		return fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.MapboxRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Mapbox API response types.

type geocodingResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	PlaceType []string  `json:"place_type"`
}

func (f feature) place() domain.Place {
	p := domain.Place{
		Name:    f.Text,
		Address: f.PlaceName,
		Type:    "place",
	}
	if len(f.PlaceType) > 0 {
		p.Type = f.PlaceType[0]
	}
	if len(f.Center) == 2 {
		p.Longitude = f.Center[0]
		p.Latitude = f.Center[1]
	}
	return p
}

type directionsResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Routes  []route `json:"routes"`
}

type route struct {
	Geometry domain.LineString `json:"geometry"`
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Legs     []leg             `json:"legs"`
}

type leg struct {
	Steps []json.RawMessage `json:"steps"`
}
