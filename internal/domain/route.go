package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoRoute is returned by a DirectionsProvider that found no route.
var ErrNoRoute = errors.New("no route found")

// Point is a WGS-84 coordinate as sent by clients.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LineString is a GeoJSON LineString; coordinates are [lon, lat].
type LineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// RouteAlternative is one route returned by a directions provider.
// Steps are passed through to clients untouched.
type RouteAlternative struct {
	Geometry LineString        `json:"geometry"`
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Steps    []json.RawMessage `json:"steps"`
}

// ScoredRoute is a route alternative annotated with hazard exposure.
type ScoredRoute struct {
	RouteIndex  int               `json:"routeIndex"`
	Distance    float64           `json:"distance"`
	Duration    float64           `json:"duration"`
	HazardCount int               `json:"hazardCount"`
	IsSafe      bool              `json:"isSafe"`
	Geometry    LineString        `json:"geometry"`
	Steps       []json.RawMessage `json:"steps"`
}

// DirectionsProvider fetches route alternatives between two points.
type DirectionsProvider interface {
	Directions(ctx context.Context, origin, destination Point, mode string) ([]RouteAlternative, error)
}
