//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return &Client{
		token:      token,
		country:    "IN",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_Search(t *testing.T) {
	c := smokeClient(t)

	places, err := c.Search(context.Background(), "Kankaria Lake", domain.Point{Latitude: 23.0225, Longitude: 72.5714})
	require.NoError(t, err)
	require.NotEmpty(t, places)

	assert.InDelta(t, 23.0, places[0].Latitude, 0.2, "lat should be near Ahmedabad")
	assert.InDelta(t, 72.6, places[0].Longitude, 0.2, "lon should be near Ahmedabad")
}

func TestSmoke_ReverseGeocode(t *testing.T) {
	c := smokeClient(t)

	place, err := c.ReverseGeocode(context.Background(), 23.0225, 72.5714)
	require.NoError(t, err)

	assert.NotEmpty(t, place.Address)
	assert.Contains(t, place.Address, "Ahmedabad")
}

func TestSmoke_Directions(t *testing.T) {
	c := smokeClient(t)

	routes, err := c.Directions(context.Background(),
		domain.Point{Latitude: 23.0225, Longitude: 72.5714},
		domain.Point{Latitude: 23.0300, Longitude: 72.5800},
		"driving")
	require.NoError(t, err)
	require.NotEmpty(t, routes)

	assert.NotEmpty(t, routes[0].Geometry.Coordinates)
	assert.Greater(t, routes[0].Duration, 0.0)
}
