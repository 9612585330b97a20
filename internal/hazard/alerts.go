package hazard

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
)

// DefaultAlertRadius is the alert search radius in meters.
const DefaultAlertRadius = 500.0

// AlertQuery is a proximity check around a point.
type AlertQuery struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    *float64 `json:"radius"`
}

// CheckAlerts finds unexpired reports within the radius of the query point,
// nearest first, and phrases an alert for the closest one. The store is not pruned.
func (s *Service) CheckAlerts(ctx context.Context, q AlertQuery) (domain.AlertResult, error) {
	if !present(q.Latitude) || !present(q.Longitude) {
		return domain.AlertResult{}, domain.NewError(domain.KindInvalidRequest, "Latitude and longitude required")
	}
	radius := DefaultAlertRadius
	if q.Radius != nil {
		radius = *q.Radius
	}
	lat, lng := *q.Latitude, *q.Longitude

	reports, err := s.activeReports(ctx)
	if err != nil {
		return domain.AlertResult{}, err
	}

	hazards := make([]domain.Hazard, 0)
	for _, r := range reports {
		distance := domain.DistanceMeters(lat, lng, r.Latitude, r.Longitude)
		if distance > radius {
			continue
		}
		hazards = append(hazards, domain.Hazard{
			ID:        r.ID,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Severity:  r.Severity,
			Distance:  int(distance),
			Direction: domain.CompassDirection(lat, lng, r.Latitude, r.Longitude),
		})
	}
	slices.SortStableFunc(hazards, func(a, b domain.Hazard) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	result := domain.AlertResult{HasHazards: len(hazards) > 0, Hazards: hazards}
	if result.HasHazards {
		msg := alertMessage(hazards[0])
		result.AlertMessage = &msg
	}
	return result, nil
}

func alertMessage(h domain.Hazard) string {
	return fmt.Sprintf("⚠️ %s severity waterlogging %dm %s!", capitalize(h.Severity), h.Distance, h.Direction)
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}
