// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
	"github.com/robfig/cron/v3"
)

const refreshTimeout = 10 * time.Second

// StatsSource computes the aggregate counts published as gauges.
type StatsSource interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

// Refresher copies store totals into Prometheus gauges on a cron schedule.
// It only reads from the store.
type Refresher struct {
	cron    *cron.Cron
	source  StatsSource
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRefresher parses schedule (standard cron or @every descriptors).
func NewRefresher(schedule string, source StatsSource, metrics *observability.Metrics, logger *slog.Logger) (*Refresher, error) {
	cl := cronLogger{logger: logger}
	r := &Refresher{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		source:  source,
		metrics: metrics,
		logger:  logger,
	}
	if _, err := r.cron.AddFunc(schedule, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Run refreshes once, then on schedule until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("stats refresher started")
	r.refresh()
	r.cron.Start()
	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.logger.Info("stats refresher stopped")
	return nil
}

// Refresh updates the gauges immediately.
func (r *Refresher) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	stats, err := r.source.Stats(ctx)
	if err != nil {
		return err
	}
	r.metrics.ActiveReports.Set(float64(stats.ActiveReports))
	r.metrics.TotalReports.Set(float64(stats.TotalReports))
	r.metrics.TotalUsers.Set(float64(stats.TotalUsers))
	return nil
}

func (r *Refresher) refresh() {
	if err := r.Refresh(context.Background()); err != nil {
		r.logger.Warn("stats refresh failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
