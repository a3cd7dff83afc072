package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Data source selectors for DATA_SOURCE.
const (
	SourceSynthetic = "synthetic"
	SourceOpenMeteo = "openmeteo"
)

// Cache backend selectors for CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheValkey = "valkey"
	CacheNone   = "none"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DataSource    string
	SyntheticSeed uint64

	// Open-Meteo archive configuration.
	OpenMeteoBaseURL    string
	OpenMeteoTimeout    time.Duration
	OpenMeteoMaxRetries int

	CacheBackend string
	CacheSize    int
	CacheTTL     time.Duration
	ValkeyAddr   string
	ValkeyPrefix string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	openMeteoTimeout, err := parsePositiveDuration("OPENMETEO_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	maxRetries, err := parseInt("OPENMETEO_MAX_RETRIES", 3, 0)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("CACHE_SIZE", 500, 1)
	if err != nil {
		return nil, err
	}

	seed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("SYNTHETIC_SEED", "1"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid SYNTHETIC_SEED")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataSource:    strings.ToLower(sharedcfg.EnvOrDefault("DATA_SOURCE", SourceSynthetic)),
		SyntheticSeed: seed,

		OpenMeteoBaseURL:    strings.TrimRight(sharedcfg.EnvOrDefault("OPENMETEO_BASE_URL", "https://archive-api.open-meteo.com"), "/"),
		OpenMeteoTimeout:    openMeteoTimeout,
		OpenMeteoMaxRetries: maxRetries,

		CacheBackend: strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheMemory)),
		CacheSize:    cacheSize,
		CacheTTL:     cacheTTL,
		ValkeyAddr:   sharedcfg.EnvOrDefault("VALKEY_ADDR", "localhost:6379"),
		ValkeyPrefix: sharedcfg.EnvOrDefault("VALKEY_PREFIX", "climate"),

		KafkaEnabled: sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "climate-analyses"),
	}

	switch cfg.DataSource {
	case SourceSynthetic, SourceOpenMeteo:
	default:
		return nil, fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", SourceSynthetic, SourceOpenMeteo, cfg.DataSource)
	}
	switch cfg.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheValkey:
		if cfg.ValkeyAddr == "" {
			return nil, errors.New("VALKEY_ADDR is required when CACHE_BACKEND is valkey")
		}
	default:
		return nil, fmt.Errorf("CACHE_BACKEND must be one of memory, valkey, none; got %q", cfg.CacheBackend)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, minimum int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, strconv.Itoa(def))
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", key, minimum)
	}
	return n, nil
}
