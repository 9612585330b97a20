package hazard

import (
	"cmp"
	"context"
	"slices"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/store"
)

// DefaultListRadius is the search radius in meters used by ListReports when none is given.
const DefaultListRadius = 10000.0

// CreateReportInput carries the client-supplied fields of a new report.
// Latitude and Longitude are pointers so a missing value can be told apart.
type CreateReportInput struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Severity    string   `json:"severity"`
	Depth       string   `json:"depth"`
	PhotoURL    *string  `json:"photoUrl"`
	Description string   `json:"description"`
}

// ListQuery filters ListReports. Without both coordinates the radius is ignored.
type ListQuery struct {
	Latitude  *float64
	Longitude *float64
	Radius    *float64
}

// CreateReport stores a new report owned by userID that expires after ReportTTL.
func (s *Service) CreateReport(ctx context.Context, userID string, in CreateReportInput) (domain.Report, error) {
	if !present(in.Latitude) || !present(in.Longitude) {
		return domain.Report{}, domain.NewError(domain.KindInvalidRequest, "Latitude and longitude required")
	}

	now := domain.Now()
	report := domain.Report{
		ID:          s.ids.NextID(),
		Latitude:    *in.Latitude,
		Longitude:   *in.Longitude,
		Severity:    cmp.Or(in.Severity, domain.DefaultSeverity),
		Depth:       cmp.Or(in.Depth, domain.DefaultDepth),
		PhotoURL:    in.PhotoURL,
		Description: in.Description,
		UserID:      userID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(domain.ReportTTL),
	}
	report = domain.EnrichWithPlaceName(ctx, report, s.geocoder, s.logger)

	reports, err := s.loadReports(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	reports = append(reports, report)
	if err := s.saveReports(ctx, reports); err != nil {
		return domain.Report{}, err
	}

	s.metrics.ReportsCreated.Inc()
	s.logger.Info("report created", "report_id", report.ID, "user_id", userID, "severity", report.Severity)
	s.publish(ctx, domain.HazardEvent{Type: domain.EventReportCreated, ReportID: report.ID, UserID: userID, Report: &report})
	return report, nil
}

// ListReports prunes expired reports from the store, then returns the rest.
// With a query point, each report carries its distance and the result is
// limited to the radius and ordered nearest first.
func (s *Service) ListReports(ctx context.Context, q ListQuery) ([]domain.NearbyReport, error) {
	now := domain.Now()
	reports, pruned, err := store.PruneExpired(ctx, s.store, domain.CollectionReports, func(r domain.Report) bool {
		return r.Expired(now)
	})
	if err != nil {
		return nil, err
	}
	if pruned > 0 {
		s.metrics.ReportsPruned.Add(float64(pruned))
		s.logger.Debug("expired reports pruned", "count", pruned)
	}

	if !present(q.Latitude) || !present(q.Longitude) {
		out := make([]domain.NearbyReport, len(reports))
		for i, r := range reports {
			out[i] = domain.NearbyReport{Report: r}
		}
		return out, nil
	}

	radius := DefaultListRadius
	if q.Radius != nil {
		radius = *q.Radius
	}

	out := make([]domain.NearbyReport, 0, len(reports))
	for _, r := range reports {
		d := int(domain.DistanceMeters(*q.Latitude, *q.Longitude, r.Latitude, r.Longitude))
		if float64(d) <= radius {
			out = append(out, domain.NearbyReport{Report: r, Distance: &d})
		}
	}
	slices.SortStableFunc(out, func(a, b domain.NearbyReport) int {
		return cmp.Compare(*a.Distance, *b.Distance)
	})
	return out, nil
}

// GetReport returns one report. An expired report yields a Gone error and is
// left in the store.
func (s *Service) GetReport(ctx context.Context, id int64) (domain.Report, error) {
	reports, err := s.loadReports(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	i := findReport(reports, id)
	if i < 0 {
		return domain.Report{}, domain.NewError(domain.KindNotFound, "Report not found")
	}
	if reports[i].Expired(domain.Now()) {
		return domain.Report{}, domain.NewError(domain.KindGone, "Report has expired")
	}
	return reports[i], nil
}

// DeleteReport removes a report. Only its owner may delete it.
func (s *Service) DeleteReport(ctx context.Context, userID string, id int64) error {
	reports, err := s.loadReports(ctx)
	if err != nil {
		return err
	}
	i := findReport(reports, id)
	if i < 0 {
		return domain.NewError(domain.KindNotFound, "Report not found")
	}
	if reports[i].UserID != userID {
		return domain.NewError(domain.KindForbidden, "Not authorized")
	}

	reports = slices.Delete(reports, i, i+1)
	if err := s.saveReports(ctx, reports); err != nil {
		return err
	}

	s.metrics.ReportsDeleted.Inc()
	s.logger.Info("report deleted", "report_id", id, "user_id", userID)
	s.publish(ctx, domain.HazardEvent{Type: domain.EventReportDeleted, ReportID: id, UserID: userID})
	return nil
}

// VoteReport records userID's vote of +1 or -1. A repeat vote replaces the
// previous one and the net total moves by the difference.
func (s *Service) VoteReport(ctx context.Context, userID string, id int64, vote int) (domain.VoteResult, error) {
	if vote != 1 && vote != -1 {
		return domain.VoteResult{}, domain.NewError(domain.KindInvalidVote, "Vote must be 1 or -1")
	}

	reports, err := s.loadReports(ctx)
	if err != nil {
		return domain.VoteResult{}, err
	}
	votes, err := store.LoadAll[domain.Vote](ctx, s.store, domain.CollectionVotes)
	if err != nil {
		return domain.VoteResult{}, err
	}

	i := findReport(reports, id)
	if i < 0 {
		return domain.VoteResult{}, domain.NewError(domain.KindNotFound, "Report not found")
	}
	report := &reports[i]

	key := domain.VoteKey(userID, id)
	kind := "new"
	if j := slices.IndexFunc(votes, func(v domain.Vote) bool { return v.Key == key }); j >= 0 {
		report.Votes -= votes[j].Vote
		votes[j].Vote = vote
		kind = "replace"
	} else {
		votes = append(votes, domain.Vote{Key: key, Vote: vote, UserID: userID, ReportID: id})
	}
	report.Votes += vote

	if err := s.saveReports(ctx, reports); err != nil {
		return domain.VoteResult{}, err
	}
	if err := store.SaveAll(ctx, s.store, domain.CollectionVotes, votes); err != nil {
		return domain.VoteResult{}, err
	}

	total := report.Votes
	s.metrics.VotesCast.WithLabelValues(kind).Inc()
	s.publish(ctx, domain.HazardEvent{Type: domain.EventReportVoted, ReportID: id, UserID: userID, Votes: &total})
	return domain.VoteResult{ReportID: id, Votes: total, UserVote: vote}, nil
}

// VerifyReport marks a report verified and resets its expiry to VerifiedTTL
// from now, whatever the previous expiry was. Any user may verify.
func (s *Service) VerifyReport(ctx context.Context, userID string, id int64) (domain.VerifyResult, error) {
	reports, err := s.loadReports(ctx)
	if err != nil {
		return domain.VerifyResult{}, err
	}
	i := findReport(reports, id)
	if i < 0 {
		return domain.VerifyResult{}, domain.NewError(domain.KindNotFound, "Report not found")
	}

	now := domain.Now()
	reports[i].VerifiedAt = &now
	reports[i].ExpiresAt = now.Add(domain.VerifiedTTL)

	if err := s.saveReports(ctx, reports); err != nil {
		return domain.VerifyResult{}, err
	}

	s.metrics.ReportsVerified.Inc()
	s.logger.Info("report verified", "report_id", id, "user_id", userID)
	s.publish(ctx, domain.HazardEvent{Type: domain.EventReportVerified, ReportID: id, UserID: userID})
	return domain.VerifyResult{
		ReportID:   id,
		Verified:   true,
		VerifiedAt: now,
		ExpiresAt:  reports[i].ExpiresAt,
	}, nil
}
