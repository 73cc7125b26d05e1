package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Event sinks for fetch activity.
const (
	SinkNone  = "none"
	SinkKafka = "kafka"
	SinkMQTT  = "mqtt"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        slog.Level
	LogFormat       string
	ShutdownTimeout time.Duration

	// Static dataset location. DataBaseURL wins over DataDir when set.
	DataDir     string
	DataBaseURL string
	DataTimeout time.Duration

	FetchDelay      time.Duration
	ResultCacheSize int

	// Theme preference storage.
	SettingsDriver string
	SettingsDSN    string
	SettingsPath   string

	// Fetch activity events.
	EventsSink   string
	KafkaBrokers []string
	KafkaTopic   string
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	level, err := parseLogLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	logFormat := strings.ToLower(envOrDefault("LOG_FORMAT", "json"))
	switch logFormat {
	case "json", "text", "tint":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (allowed: json, text, tint)", logFormat)
	}

	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	dataTimeout, err := parsePositiveDuration("DATA_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	fetchDelayStr := envOrDefault("FETCH_DELAY", "500ms")
	fetchDelay, err := time.ParseDuration(fetchDelayStr)
	if err != nil || fetchDelay < 0 {
		return nil, fmt.Errorf("invalid FETCH_DELAY %q", fetchDelayStr)
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        level,
		LogFormat:       logFormat,
		ShutdownTimeout: shutdownTimeout,

		DataDir:     envOrDefault("DATA_DIR", "data"),
		DataBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("DATA_BASE_URL")), "/"),
		DataTimeout: dataTimeout,

		FetchDelay:      fetchDelay,
		ResultCacheSize: cacheSize,

		SettingsDriver: envOrDefault("SETTINGS_DRIVER", "sqlite3"),
		SettingsDSN:    strings.TrimSpace(os.Getenv("SETTINGS_DSN")),
		SettingsPath:   envOrDefault("SETTINGS_PATH", "data/settings.db"),

		EventsSink:   strings.ToLower(envOrDefault("EVENTS_SINK", SinkNone)),
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "dashboard-fetches"),
		MQTTBroker:   envOrDefault("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTTopic:    envOrDefault("MQTT_TOPIC", "climate-dashboard/fetches"),
		MQTTClientID: envOrDefault("MQTT_CLIENT_ID", "climate-dashboard"),
	}

	switch cfg.SettingsDriver {
	case "sqlite3":
	case "mysql":
		if cfg.SettingsDSN == "" {
			return nil, errors.New("SETTINGS_DSN is required when SETTINGS_DRIVER is mysql")
		}
	default:
		return nil, fmt.Errorf("invalid SETTINGS_DRIVER %q (allowed: sqlite3, mysql)", cfg.SettingsDriver)
	}

	switch cfg.EventsSink {
	case SinkNone:
	case SinkKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when EVENTS_SINK is kafka")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when EVENTS_SINK is kafka")
		}
	case SinkMQTT:
		if cfg.MQTTTopic == "" {
			return nil, errors.New("MQTT_TOPIC is required when EVENTS_SINK is mqtt")
		}
	default:
		return nil, fmt.Errorf("invalid EVENTS_SINK %q (allowed: none, kafka, mqtt)", cfg.EventsSink)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parseCacheSize() (int, error) {
	s := envOrDefault("RESULT_CACHE_SIZE", "128")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid RESULT_CACHE_SIZE %q", s)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
