// Command api runs the Civix waterlogging hazard API.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/civix-hazard-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/civix-hazard-service/internal/adapter/kafka"
	"github.com/couchcryptid/civix-hazard-service/internal/adapter/mapbox"
	"github.com/couchcryptid/civix-hazard-service/internal/adapter/photo"
	"github.com/couchcryptid/civix-hazard-service/internal/auth"
	"github.com/couchcryptid/civix-hazard-service/internal/config"
	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/events"
	"github.com/couchcryptid/civix-hazard-service/internal/hazard"
	"github.com/couchcryptid/civix-hazard-service/internal/idgen"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
	"github.com/couchcryptid/civix-hazard-service/internal/scheduler"
	"github.com/couchcryptid/civix-hazard-service/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "civix-hazard")
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// readinessChecks is ready when every check passes.
type readinessChecks []httpadapter.ReadinessChecker

func (rc readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, c := range rc {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ready readinessChecks
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Error("close error", "error", err)
			}
		}
	}()
	track := func(v any) {
		if c, ok := v.(httpadapter.ReadinessChecker); ok {
			ready = append(ready, c)
		}
		if c, ok := v.(io.Closer); ok {
			closers = append(closers, c)
		}
	}

	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Dir:         cfg.StoreDir,
		DatabaseURL: cfg.DatabaseURL,
		MongoURI:    cfg.MongoURI,
		MongoDB:     cfg.MongoDB,
	})
	if err != nil {
		return err
	}
	track(st)
	logger.Info("record store opened", "backend", cfg.StoreBackend)

	ids, err := idgen.New(cfg.SnowflakeID)
	if err != nil {
		return err
	}

	opts := []hazard.Option{hazard.WithLocation(cfg.Timezone)}

	// Mapbox is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.SearchCountry, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		opts = append(opts, hazard.WithDirections(client), hazard.WithGeocoder(geocoder))
		metrics.MapboxEnabled.Set(1)
		logger.Info("mapbox enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox disabled; route scoring and search will fail")
	}

	var dispatcher *events.Dispatcher
	if cfg.EventsEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, writer)
		dispatcher = events.New(writer, logger, metrics, events.Options{
			QueueSize:     cfg.EventQueueSize,
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.BatchFlushInterval,
		})
		ready = append(ready, dispatcher)
		opts = append(opts, hazard.WithEvents(dispatcher))
		logger.Info("hazard events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	photos, uploadDir, err := openPhotoStore(ctx, cfg)
	if err != nil {
		return err
	}
	track(photos)

	svc := hazard.NewService(st, ids, idgen.NewUserID, logger, metrics, opts...)

	refresher, err := scheduler.NewRefresher(cfg.StatsSchedule, svc, metrics, logger)
	if err != nil {
		return err
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Dependencies{
		Hazards:        svc,
		Tokens:         auth.NewAuthority(cfg.JWTSecret, cfg.TokenTTL),
		Geocoder:       geocoder,
		Photos:         photos,
		PhotoIDs:       ids.PhotoID,
		UploadDir:      uploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Ready:          ready,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
	}, logger)

	var wg sync.WaitGroup
	wg.Go(func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	})
	// The dispatcher outlives the signal so in-flight requests can still publish.
	eventsCtx, stopEvents := context.WithCancel(context.Background())
	defer stopEvents()
	var eventsDone sync.WaitGroup
	if dispatcher != nil {
		eventsDone.Go(func() {
			if err := dispatcher.Run(eventsCtx); err != nil {
				logger.Error("event dispatcher error", "error", err)
			}
		})
	}
	wg.Go(func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("stats refresher error", "error", err)
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	stopEvents()
	eventsDone.Wait()

	logger.Info("shutdown complete")
	return nil
}

func openPhotoStore(ctx context.Context, cfg *config.Config) (photo.Store, string, error) {
	if cfg.PhotoBackend == "gcs" {
		g, err := photo.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentials)
		return g, "", err
	}
	l, err := photo.NewLocal(cfg.UploadDir)
	if err != nil {
		return nil, "", err
	}
	return l, l.Dir(), nil
}
