// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal containers

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const defaultSecret = "civix-secret-key-change-in-production"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Record store.
	StoreBackend string
	StoreDir     string
	DatabaseURL  string
	MongoURI     string
	MongoDB      string

	JWTSecret   string
	TokenTTL    time.Duration
	Timezone    *time.Location
	SnowflakeID int64

	// Mapbox directions and geocoding.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	SearchCountry   string

	// Hazard event stream. Empty KafkaBrokers disables it.
	KafkaBrokers       []string
	KafkaTopic         string
	EventQueueSize     int
	BatchSize          int
	BatchFlushInterval time.Duration

	// Photo uploads.
	PhotoBackend   string
	UploadDir      string
	GCSBucket      string
	GCSCredentials string
	MaxUploadBytes int64

	// Cron schedule for the metrics refresher.
	StatsSchedule string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	tokenTTL, err := parsePositiveDuration("TOKEN_TTL", "8760h")
	if err != nil {
		return nil, err
	}
	node, err := parseInt("SNOWFLAKE_NODE", 0)
	if err != nil {
		return nil, err
	}
	queueSize, err := parseInt("EVENT_QUEUE_SIZE", 1024)
	if err != nil || queueSize <= 0 {
		return nil, errors.New("invalid EVENT_QUEUE_SIZE")
	}
	maxUpload, err := parseInt("MAX_UPLOAD_BYTES", 10<<20)
	if err != nil || maxUpload <= 0 {
		return nil, errors.New("invalid MAX_UPLOAD_BYTES")
	}
	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("CORS_ORIGINS", "*")),

		StoreBackend: sharedcfg.EnvOrDefault("STORE_BACKEND", "file"),
		StoreDir:     sharedcfg.EnvOrDefault("STORE_DIR", "data"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      sharedcfg.EnvOrDefault("MONGO_DB", "civix"),

		JWTSecret:   sharedcfg.EnvOrDefault("JWT_SECRET", sharedcfg.EnvOrDefault("SECRET_KEY", defaultSecret)),
		TokenTTL:    tokenTTL,
		Timezone:    loc,
		SnowflakeID: int64(node),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
		SearchCountry:   sharedcfg.EnvOrDefault("SEARCH_COUNTRY", "IN"),

		KafkaBrokers:       brokers,
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "hazard-events"),
		EventQueueSize:     queueSize,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		PhotoBackend:   sharedcfg.EnvOrDefault("PHOTO_BACKEND", "local"),
		UploadDir:      sharedcfg.EnvOrDefault("UPLOAD_DIR", "uploads"),
		GCSBucket:      os.Getenv("GCS_BUCKET"),
		GCSCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		MaxUploadBytes: int64(maxUpload),
		StatsSchedule:  sharedcfg.EnvOrDefault("STATS_REFRESH_SCHEDULE", "@every 1m"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EventsEnabled reports whether hazard events should be written to Kafka.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case "memory", "file":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("STORE_BACKEND is postgres but DATABASE_URL is not set")
		}
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("STORE_BACKEND is mongo but MONGO_URI is not set")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.PhotoBackend {
	case "local":
	case "gcs":
		if c.GCSBucket == "" {
			return errors.New("PHOTO_BACKEND is gcs but GCS_BUCKET is not set")
		}
	default:
		return fmt.Errorf("invalid PHOTO_BACKEND %q", c.PhotoBackend)
	}

	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if c.EventsEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.SnowflakeID < 0 || c.SnowflakeID > 3 {
		return errors.New("SNOWFLAKE_NODE must be between 0 and 3")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
