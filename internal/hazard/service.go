// Package hazard implements the report lifecycle and the geospatial queries
// built on it: proximity alerts, route scoring, stats, and the user registry.
//
// Every mutating operation loads whole collections from the record store,
// changes them in memory, and saves them back. Nothing is locked between the
// load and the save, so concurrent writers to one collection can lose
// updates; the last save wins.
package hazard

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
	"github.com/couchcryptid/civix-hazard-service/internal/store"
)

// IDGenerator hands out unique, creation-ordered report ids.
type IDGenerator interface {
	NextID() int64
}

// UserIDFunc returns a fresh user id.
type UserIDFunc func() string

// Service runs hazard operations against a record store.
type Service struct {
	store      store.Store
	ids        IDGenerator
	userIDs    UserIDFunc
	events     domain.EventPublisher
	geocoder   domain.Geocoder
	directions domain.DirectionsProvider
	location   *time.Location
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithEvents publishes lifecycle events to p.
func WithEvents(p domain.EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithGeocoder enables place-name enrichment on report creation.
func WithGeocoder(g domain.Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithDirections sets the provider used by ScoreRoutes.
func WithDirections(d domain.DirectionsProvider) Option {
	return func(s *Service) { s.directions = d }
}

// WithUserIDs overrides user id generation.
func WithUserIDs(f UserIDFunc) Option {
	return func(s *Service) { s.userIDs = f }
}

// WithLocation sets the time zone that defines "today" in Stats. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// NewService wires a Service. Collaborators not supplied through options are disabled.
func NewService(st store.Store, ids IDGenerator, userIDs UserIDFunc, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		store:    st,
		ids:      ids,
		userIDs:  userIDs,
		events:   noopPublisher{},
		location: time.Local,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.HazardEvent) {}

func (s *Service) publish(ctx context.Context, event domain.HazardEvent) {
	event.OccurredAt = domain.Now()
	s.events.Publish(ctx, event)
}

func (s *Service) loadReports(ctx context.Context) ([]domain.Report, error) {
	return store.LoadAll[domain.Report](ctx, s.store, domain.CollectionReports)
}

func (s *Service) saveReports(ctx context.Context, reports []domain.Report) error {
	return store.SaveAll(ctx, s.store, domain.CollectionReports, reports)
}

// activeReports returns unexpired reports without pruning the store.
func (s *Service) activeReports(ctx context.Context) ([]domain.Report, error) {
	reports, err := s.loadReports(ctx)
	if err != nil {
		return nil, err
	}
	now := domain.Now()
	active := reports[:0]
	for _, r := range reports {
		if !r.Expired(now) {
			active = append(active, r)
		}
	}
	return active, nil
}

func findReport(reports []domain.Report, id int64) int {
	for i := range reports {
		if reports[i].ID == id {
			return i
		}
	}
	return -1
}

// present treats a missing or zero coordinate as absent.
func present(v *float64) bool {
	return v != nil && *v != 0
}
