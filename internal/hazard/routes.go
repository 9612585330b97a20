package hazard

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
)

const (
	maxRouteAlternatives = 3
	maxRouteSteps        = 10
	// DefaultTravelMode is the directions profile used when a request names none.
	DefaultTravelMode = "driving"
)

var travelModes = map[string]bool{
	"driving":         true,
	"driving-traffic": true,
	"walking":         true,
	"cycling":         true,
}

// RouteQuery asks for scored routes between two points.
type RouteQuery struct {
	Origin      *domain.Point `json:"origin"`
	Destination *domain.Point `json:"destination"`
	Mode        string        `json:"mode"`
}

// ScoreRoutes fetches up to three route alternatives and ranks them by the
// number of active hazards along each, then by duration.
func (s *Service) ScoreRoutes(ctx context.Context, q RouteQuery) ([]domain.ScoredRoute, error) {
	if q.Origin == nil || q.Destination == nil {
		return nil, domain.NewError(domain.KindInvalidRequest, "Origin and destination required")
	}
	mode := cmp.Or(q.Mode, DefaultTravelMode)
	if !travelModes[mode] {
		return nil, domain.NewError(domain.KindInvalidRequest, "Unsupported travel mode "+mode)
	}
	if s.directions == nil {
		return nil, domain.NewError(domain.KindServerError, "Directions provider not configured")
	}

	alternatives, err := s.directions.Directions(ctx, *q.Origin, *q.Destination, mode)
	if errors.Is(err, domain.ErrNoRoute) || (err == nil && len(alternatives) == 0) {
		return nil, domain.NewError(domain.KindNoRoute, "No route found")
	}
	if err != nil {
		return nil, domain.WrapError(domain.KindServerError, err.Error(), err)
	}

	reports, err := s.activeReports(ctx)
	if err != nil {
		return nil, err
	}
	return scoreAlternatives(alternatives, reports), nil
}

func scoreAlternatives(alternatives []domain.RouteAlternative, reports []domain.Report) []domain.ScoredRoute {
	if len(alternatives) > maxRouteAlternatives {
		alternatives = alternatives[:maxRouteAlternatives]
	}

	routes := make([]domain.ScoredRoute, len(alternatives))
	for i, alt := range alternatives {
		count := countHazardsOnRoute(alt.Geometry.Coordinates, reports)
		steps := alt.Steps
		if len(steps) > maxRouteSteps {
			steps = steps[:maxRouteSteps]
		}
		if steps == nil {
			steps = []json.RawMessage{}
		}
		routes[i] = domain.ScoredRoute{
			RouteIndex:  i,
			Distance:    alt.Distance,
			Duration:    alt.Duration,
			HazardCount: count,
			IsSafe:      count == 0,
			Geometry:    alt.Geometry,
			Steps:       steps,
		}
	}

	slices.SortStableFunc(routes, func(a, b domain.ScoredRoute) int {
		return cmp.Or(
			cmp.Compare(a.HazardCount, b.HazardCount),
			cmp.Compare(a.Duration, b.Duration),
		)
	})
	return routes
}

func countHazardsOnRoute(coordinates [][2]float64, reports []domain.Report) int {
	count := 0
	for _, r := range reports {
		if domain.IsOnRoute([2]float64{r.Longitude, r.Latitude}, coordinates, domain.DefaultRouteThreshold) {
			count++
		}
	}
	return count
}
