package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/wrf-geojson/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Conversion settings.
	BandCount   int
	Workers     int
	Colormap    string
	LatVariable string
	LonVariable string
	TimeIndex   int
	DataDir     string

	// GridCacheSize bounds the grids kept in memory by the HTTP service; 0
	// disables caching.
	GridCacheSize int

	// Kafka publishing is enabled when a topic is configured.
	KafkaBrokers   []string
	KafkaTopic     string
	PublishEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	bandCount, err := parseInt("CONTOUR_BANDS", domain.DefaultBandCount, 1)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("CONVERT_WORKERS", 4, 1)
	if err != nil {
		return nil, err
	}
	timeIndex, err := parseInt("TIME_INDEX", 0, 0)
	if err != nil {
		return nil, err
	}
	gridCacheSize, err := parseInt("GRID_CACHE_SIZE", 8, 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BandCount:   bandCount,
		Workers:     workers,
		Colormap:    sharedcfg.EnvOrDefault("COLORMAP", "viridis"),
		LatVariable: sharedcfg.EnvOrDefault("LAT_VARIABLE", "XLAT"),
		LonVariable: sharedcfg.EnvOrDefault("LON_VARIABLE", "XLONG"),
		TimeIndex:   timeIndex,
		DataDir:     sharedcfg.EnvOrDefault("DATA_DIR", "."),

		GridCacheSize: gridCacheSize,

		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", ""),
	}
	cfg.PublishEnabled = cfg.KafkaTopic != ""

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that flags may have overridden after Load.
func (c *Config) Validate() error {
	if _, ok := domain.Colormaps[c.Colormap]; !ok {
		return fmt.Errorf("unknown COLORMAP %q", c.Colormap)
	}
	if c.LatVariable == "" || c.LonVariable == "" {
		return errors.New("LAT_VARIABLE and LON_VARIABLE must not be empty")
	}
	if c.BandCount < 1 {
		return errors.New("invalid CONTOUR_BANDS: must be at least 1")
	}
	if c.Workers < 1 {
		return errors.New("invalid CONVERT_WORKERS: must be at least 1")
	}
	if c.PublishEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_TOPIC is set")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: want json or text", c.LogFormat)
	}
	return nil
}

func parseInt(key string, def, minimum int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, "")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", key, minimum)
	}
	return n, nil
}
