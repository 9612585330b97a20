package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- mock geocoder ---

type mockGeocoder struct {
	reverseResult Place
	reverseErr    error
	reverseCalls  int
}

func (m *mockGeocoder) Search(_ context.Context, _ string, _ Point) ([]Place, error) {
	return nil, nil
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (Place, error) {
	m.reverseCalls++
	return m.reverseResult, m.reverseErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestEnrichWithPlaceName_NilGeocoder(t *testing.T) {
	report := Report{ID: 1, Latitude: 23.03, Longitude: 72.58}

	result := EnrichWithPlaceName(context.Background(), report, nil, discardLogger())

	assert.Empty(t, result.PlaceName)
}

func TestEnrichWithPlaceName_UsesAddress(t *testing.T) {
	geo := &mockGeocoder{
		reverseResult: Place{Name: "Navrangpura", Address: "Navrangpura, Ahmedabad, Gujarat, India"},
	}
	report := Report{ID: 2, Latitude: 23.03, Longitude: 72.56}

	result := EnrichWithPlaceName(context.Background(), report, geo, discardLogger())

	assert.Equal(t, "Navrangpura, Ahmedabad, Gujarat, India", result.PlaceName)
	assert.Equal(t, 1, geo.reverseCalls)
}

func TestEnrichWithPlaceName_FallsBackToName(t *testing.T) {
	geo := &mockGeocoder{reverseResult: Place{Name: "Maninagar"}}

	result := EnrichWithPlaceName(context.Background(), Report{ID: 3}, geo, discardLogger())

	assert.Equal(t, "Maninagar", result.PlaceName)
}

func TestEnrichWithPlaceName_ErrorGracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{reverseErr: errors.New("rate limited")}
	report := Report{ID: 4, Latitude: 23.03, Longitude: 72.58, Severity: "HIGH"}

	result := EnrichWithPlaceName(context.Background(), report, geo, discardLogger())

	assert.Empty(t, result.PlaceName)
	assert.Equal(t, report, result)
}

func TestEnrichWithPlaceName_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{}

	result := EnrichWithPlaceName(context.Background(), Report{ID: 5}, geo, discardLogger())

	assert.Empty(t, result.PlaceName)
	assert.Equal(t, 1, geo.reverseCalls)
}
