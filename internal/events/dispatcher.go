// Package events fans hazard report changes out to the event topic.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	drainTimeout   = 5 * time.Second
)

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Options tunes the dispatcher queue and batching.
type Options struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

// Dispatcher buffers hazard events in memory and writes them in batches.
// Publish never blocks: when the queue is full, or the dispatcher has
// already stopped, the event is dropped and counted.
type Dispatcher struct {
	queue         chan domain.HazardEvent
	loader        BatchLoader
	logger        *slog.Logger
	metrics       *observability.Metrics
	batchSize     int
	flushInterval time.Duration
	running       atomic.Bool

	mu      sync.RWMutex
	stopped bool
}

// New creates a Dispatcher. Zero options fall back to small defaults.
func New(loader BatchLoader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	return &Dispatcher{
		queue:         make(chan domain.HazardEvent, opts.QueueSize),
		loader:        loader,
		logger:        logger,
		metrics:       metrics,
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
	}
}

// Publish enqueues an event. It implements domain.EventPublisher.
func (d *Dispatcher) Publish(_ context.Context, event domain.HazardEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.metrics.EventsDropped.Inc()
		d.logger.Warn("event dispatcher stopped, dropping event",
			"type", event.Type, "report_id", event.ReportID)
		return
	}
	select {
	case d.queue <- event:
	default:
		d.metrics.EventsDropped.Inc()
		d.logger.Warn("event queue full, dropping event",
			"type", event.Type, "report_id", event.ReportID)
	}
}

// CheckReadiness returns nil while the dispatch loop is running.
func (d *Dispatcher) CheckReadiness(_ context.Context) error {
	if !d.running.Load() {
		return errors.New("event dispatcher is not running")
	}
	return nil
}

// Run drains the queue in batches until the context is cancelled, then makes
// one best-effort flush of whatever is still queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("event dispatcher started",
		"batch_size", d.batchSize, "flush_interval", d.flushInterval)
	d.metrics.EventPublisherRunning.Set(1)
	d.running.Store(true)
	defer func() {
		d.running.Store(false)
		d.metrics.EventPublisherRunning.Set(0)
	}()

	for {
		batch, ok := d.collect(ctx)
		if len(batch) > 0 && !d.deliver(ctx, batch) {
			d.drain(batch)
			return nil
		}
		if !ok {
			d.drain(nil)
			return nil
		}
	}
}

// collect blocks for the first event, then gathers more until the batch is
// full or the flush interval passes. Returns false once the context is done.
func (d *Dispatcher) collect(ctx context.Context) ([]domain.HazardEvent, bool) {
	var batch []domain.HazardEvent
	select {
	case <-ctx.Done():
		return nil, false
	case e := <-d.queue:
		batch = append(batch, e)
	}

	timer := time.NewTimer(d.flushInterval)
	defer timer.Stop()
	for len(batch) < d.batchSize {
		select {
		case <-ctx.Done():
			return batch, false
		case <-timer.C:
			return batch, true
		case e := <-d.queue:
			batch = append(batch, e)
		}
	}
	return batch, true
}

// deliver writes a batch, retrying with backoff until it succeeds.
// Returns false if the context was cancelled first.
func (d *Dispatcher) deliver(ctx context.Context, batch []domain.HazardEvent) bool {
	out := d.serialize(batch)
	if len(out) == 0 {
		return true
	}

	backoff := initialBackoff
	for {
		start := time.Now()
		err := d.loader.LoadBatch(ctx, out)
		if err == nil {
			d.metrics.EventsPublished.Add(float64(len(out)))
			d.metrics.EventBatchSize.Observe(float64(len(out)))
			d.metrics.EventPublishDuration.Observe(time.Since(start).Seconds())
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		d.logger.Error("publish batch failed", "error", err, "batch_size", len(out))
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// drain stops accepting events, then makes a single write attempt for pending
// and any queued events on a fresh context.
func (d *Dispatcher) drain(pending []domain.HazardEvent) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

queued:
	for {
		select {
		case e := <-d.queue:
			pending = append(pending, e)
		default:
			break queued
		}
	}
	out := d.serialize(pending)
	if len(out) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.loader.LoadBatch(ctx, out); err != nil {
		d.metrics.EventsDropped.Add(float64(len(out)))
		d.logger.Error("final event flush failed", "error", err, "batch_size", len(out))
		return
	}
	d.metrics.EventsPublished.Add(float64(len(out)))
	d.logger.Info("flushed pending events", "count", len(out))
}

func (d *Dispatcher) serialize(batch []domain.HazardEvent) []domain.OutputEvent {
	out := make([]domain.OutputEvent, 0, len(batch))
	for _, e := range batch {
		msg, err := domain.SerializeHazardEvent(e)
		if err != nil {
			d.logger.Warn("serialize event failed, skipping", "error", err, "report_id", e.ReportID)
			d.metrics.EventsDropped.Inc()
			continue
		}
		out = append(out, msg)
	}
	return out
}
