package domain

import "context"

// Place is a geocoding feature returned by a places provider.
type Place struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Type      string  `json:"type"`
}

// Geocoder resolves place names and coordinates.
type Geocoder interface {
	// Search returns up to a provider-defined number of places matching query,
	// biased towards near.
	Search(ctx context.Context, query string, near Point) ([]Place, error)

	// ReverseGeocode returns the best place at the given coordinates, or a zero
	// Place when the provider has nothing there.
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}
