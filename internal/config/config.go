package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultFeedURL is the Etalab consolidation of the IRVE static schema v2.2.0.
const DefaultFeedURL = "https://static.data.gouv.fr/resources/fichier-consolide-des-bornes-de-recharge-pour-vehicules-electriques/20231022-065434/consolidation-etalab-schema-irve-statique-v-2.2.0-20231021.csv"

// Geocoding providers accepted by GEOCODER_PROVIDER.
const (
	ProviderOpenCage = "opencage"
	ProviderMapbox   = "mapbox"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL     string
	FeedTimeout time.Duration
	RegionsPath string

	// Snapshot memoization. A zero bucket keeps the first snapshot for the
	// whole process lifetime.
	SnapshotBucket    time.Duration
	SnapshotCacheSize int

	GrowthStartYear int
	FastChargeKW    float64

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Geocoding configuration.
	GeocoderProvider string
	GeocoderEnabled  bool
	GeocoderTimeout  time.Duration
	GeocoderRate     float64 // requests per second
	GeocoderCountry  string  // optional ISO 3166-1 alpha-2 restriction
	OpenCageKey      string
	MapboxToken      string

	// Optional report sink.
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	bucket, err := time.ParseDuration(sharedcfg.EnvOrDefault("SNAPSHOT_BUCKET", "0s"))
	if err != nil || bucket < 0 {
		return nil, errors.New("invalid SNAPSHOT_BUCKET")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("SNAPSHOT_CACHE_SIZE", "2"))
	if err != nil || cacheSize < 1 {
		return nil, errors.New("invalid SNAPSHOT_CACHE_SIZE: must be a positive integer")
	}

	startYear, err := strconv.Atoi(sharedcfg.EnvOrDefault("GROWTH_START_YEAR", "2015"))
	if err != nil || startYear < 1900 || startYear > 2100 {
		return nil, errors.New("invalid GROWTH_START_YEAR")
	}

	fastCharge, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("FAST_CHARGE_KW", "43"), 64)
	if err != nil || fastCharge <= 0 {
		return nil, errors.New("invalid FAST_CHARGE_KW")
	}

	rps, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOCODER_RATE", "1"), 64)
	if err != nil || rps <= 0 {
		return nil, errors.New("invalid GEOCODER_RATE")
	}

	provider := strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderOpenCage))
	openCageKey := os.Getenv("OPENCAGE_API_KEY")
	mapboxToken := os.Getenv("MAPBOX_TOKEN")

	cfg := &Config{
		FeedURL:           sharedcfg.EnvOrDefault("FEED_URL", DefaultFeedURL),
		FeedTimeout:       feedTimeout,
		RegionsPath:       sharedcfg.EnvOrDefault("REGIONS_PATH", "departements.geojson"),
		SnapshotBucket:    bucket,
		SnapshotCacheSize: cacheSize,
		GrowthStartYear:   startYear,
		FastChargeKW:      fastCharge,
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,

		GeocoderProvider: provider,
		GeocoderTimeout:  geocoderTimeout,
		GeocoderRate:     rps,
		GeocoderCountry:  strings.ToLower(os.Getenv("GEOCODER_COUNTRY")),
		OpenCageKey:      openCageKey,
		MapboxToken:      mapboxToken,

		KafkaBrokers:   sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "irve-dashboard"),
	}

	switch provider {
	case ProviderOpenCage, ProviderMapbox:
	default:
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER %q: want %s or %s", provider, ProviderOpenCage, ProviderMapbox)
	}

	cfg.GeocoderEnabled = cfg.GeocoderCredential() != ""
	if v := os.Getenv("GEOCODER_ENABLED"); v != "" {
		cfg.GeocoderEnabled = v == "true"
	}

	if cfg.FeedURL == "" {
		return nil, errors.New("FEED_URL is required")
	}
	if cfg.RegionsPath == "" {
		return nil, errors.New("REGIONS_PATH is required")
	}
	if cfg.GeocoderEnabled && cfg.GeocoderCredential() == "" {
		if provider == ProviderMapbox {
			return nil, errors.New("GEOCODER_ENABLED is true but MAPBOX_TOKEN is not set")
		}
		return nil, errors.New("GEOCODER_ENABLED is true but OPENCAGE_API_KEY is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// GeocoderCredential returns the credential of the selected provider.
func (c *Config) GeocoderCredential() string {
	if c.GeocoderProvider == ProviderMapbox {
		return c.MapboxToken
	}
	return c.OpenCageKey
}

// KafkaEnabled reports whether a report sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
