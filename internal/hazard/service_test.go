package hazard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
	"github.com/couchcryptid/civix-hazard-service/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC)

type seqIDs struct {
	mu   sync.Mutex
	next int64
}

func (g *seqIDs) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.HazardEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.HazardEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *store.Memory
	clock  *clockwork.FakeClock
	events *recordingPublisher
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(baseTime)
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })

	mem := store.NewMemory()
	events := &recordingPublisher{}
	users := 0
	userIDs := func() string {
		users++
		return "user_" + string(rune('a'+users-1))
	}

	opts = append([]Option{WithEvents(events), WithLocation(time.UTC)}, opts...)
	svc := NewService(mem, &seqIDs{}, userIDs, discardLogger(), observability.NewMetricsForTesting(), opts...)
	return &fixture{svc: svc, store: mem, clock: clock, events: events}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) create(t *testing.T, userID string, lat, lng float64, severity string) domain.Report {
	t.Helper()
	r, err := f.svc.CreateReport(context.Background(), userID, CreateReportInput{
		Latitude:  ptr(lat),
		Longitude: ptr(lng),
		Severity:  severity,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) storedReports(t *testing.T) []domain.Report {
	t.Helper()
	reports, err := store.LoadAll[domain.Report](context.Background(), f.store, domain.CollectionReports)
	require.NoError(t, err)
	return reports
}

func (f *fixture) seed(t *testing.T, reports ...domain.Report) {
	t.Helper()
	require.NoError(t, store.SaveAll(context.Background(), f.store, domain.CollectionReports, reports))
}
