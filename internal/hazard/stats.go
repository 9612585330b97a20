package hazard

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/store"
)

const topAreaLimit = 5

// Stats aggregates over every stored report, expired ones included, and all
// users. It never prunes.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	reports, err := s.loadReports(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	users, err := store.LoadAll[domain.User](ctx, s.store, domain.CollectionUsers)
	if err != nil {
		return domain.Stats{}, err
	}

	now := domain.Now()
	stats := domain.Stats{
		TotalReports: len(reports),
		TotalUsers:   len(users),
		TopAreas:     topAreas(reports, topAreaLimit),
	}
	for _, r := range reports {
		if !r.Expired(now) {
			stats.ActiveReports++
		}
		if sameDay(r.CreatedAt, now, s.location) {
			stats.ReportsToday++
		}
	}
	return stats, nil
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// topAreas buckets reports by coordinates rounded to two decimals and returns
// the n largest buckets. Equal counts keep first-seen order.
func topAreas(reports []domain.Report, n int) []domain.AreaCount {
	index := make(map[[2]float64]int)
	areas := make([]domain.AreaCount, 0)
	for _, r := range reports {
		key := [2]float64{round2(r.Latitude), round2(r.Longitude)}
		i, ok := index[key]
		if !ok {
			i = len(areas)
			index[key] = i
			areas = append(areas, domain.AreaCount{Name: formatCoord(key[0]) + ", " + formatCoord(key[1])})
		}
		areas[i].ReportCount++
	}

	slices.SortStableFunc(areas, func(a, b domain.AreaCount) int {
		return b.ReportCount - a.ReportCount
	})
	if len(areas) > n {
		areas = areas[:n]
	}
	return areas
}

// round2 rounds to two decimals using the shortest correctly rounded decimal,
// so halfway cases follow the binary value rather than the printed one.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// formatCoord renders v in shortest form, keeping a trailing ".0" on whole numbers.
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
