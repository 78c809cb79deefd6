package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for OpSight
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Workers   WorkersConfig   `yaml:"workers"`
	Analytics Analytics       `yaml:"analytics"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

// StoreConfig selects the record backend
type StoreConfig struct {
	Driver  string `yaml:"driver"` // memory, postgres, sqlite
	Fixture string `yaml:"fixture"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SQLiteConfig holds embedded database configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// KafkaConfig holds job-log ingestion configuration
type KafkaConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Brokers         []string `yaml:"brokers"`
	Topic           string   `yaml:"topic"`
	GroupID         string   `yaml:"group_id"`
	DeadLetterTopic string   `yaml:"dead_letter_topic"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// TelemetryConfig holds tracing configuration
type TelemetryConfig struct {
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// WorkersConfig sizes the fan-out pool used for fleet reports
type WorkersConfig struct {
	Count           int           `yaml:"count"`
	QueueSize       int           `yaml:"queue_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Analytics holds the engine thresholds and default query windows.
// It is built once at startup and passed by value.
type Analytics struct {
	WorldClassOEE   float64 `yaml:"world_class_oee"`
	AcceptableOEE   float64 `yaml:"acceptable_oee"`
	LowOEE          float64 `yaml:"low_oee"`
	PerformanceRate float64 `yaml:"performance_rate"`

	TrendWindow int     `yaml:"trend_window"`
	TrendBand   float64 `yaml:"trend_band"`

	CauseShareThreshold float64 `yaml:"cause_share_threshold"`

	DataWindow             time.Duration `yaml:"data_window"`
	DowntimeWindow         time.Duration `yaml:"downtime_window"`
	HistoryWindow          time.Duration `yaml:"history_window"`
	RecommendationWindow   time.Duration `yaml:"recommendation_window"`
	SkillDevelopmentWindow time.Duration `yaml:"skill_development_window"`
	TopPerformerWindow     time.Duration `yaml:"top_performer_window"`
	ScheduleWindow         time.Duration `yaml:"schedule_window"`

	TopPerformerLimit int `yaml:"top_performer_limit"`

	// FleetRefresh recomputes the fleet OEE report in the background; 0 disables it
	FleetRefresh time.Duration `yaml:"fleet_refresh"`
}

const day = 24 * time.Hour

// DefaultAnalytics returns the standard thresholds
func DefaultAnalytics() Analytics {
	return Analytics{
		WorldClassOEE:          0.85,
		AcceptableOEE:          0.60,
		LowOEE:                 0.40,
		PerformanceRate:        1.2,
		TrendWindow:            7,
		TrendBand:              0.10,
		CauseShareThreshold:    0.10,
		DataWindow:             30 * day,
		DowntimeWindow:         90 * day,
		HistoryWindow:          90 * day,
		RecommendationWindow:   180 * day,
		SkillDevelopmentWindow: 90 * day,
		TopPerformerWindow:     30 * day,
		ScheduleWindow:         30 * day,
		TopPerformerLimit:      10,
	}
}

// Validate rejects thresholds the engine cannot work with
func (a Analytics) Validate() error {
	var errs []error
	if !(a.LowOEE > 0 && a.LowOEE < a.AcceptableOEE && a.AcceptableOEE < a.WorldClassOEE && a.WorldClassOEE <= 1) {
		errs = append(errs, errors.New("oee tiers must satisfy 0 < low < acceptable < world_class <= 1"))
	}
	if a.PerformanceRate < 1 {
		errs = append(errs, errors.New("performance_rate must be >= 1"))
	}
	if a.TrendWindow < 1 {
		errs = append(errs, errors.New("trend_window must be positive"))
	}
	if a.TrendBand <= 0 || a.TrendBand >= 1 {
		errs = append(errs, errors.New("trend_band must be in (0, 1)"))
	}
	if a.CauseShareThreshold < 0 || a.CauseShareThreshold > 1 {
		errs = append(errs, errors.New("cause_share_threshold must be in [0, 1]"))
	}
	for name, w := range map[string]time.Duration{
		"data_window":              a.DataWindow,
		"downtime_window":          a.DowntimeWindow,
		"history_window":           a.HistoryWindow,
		"recommendation_window":    a.RecommendationWindow,
		"skill_development_window": a.SkillDevelopmentWindow,
		"top_performer_window":     a.TopPerformerWindow,
		"schedule_window":          a.ScheduleWindow,
	} {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if a.FleetRefresh < 0 {
		errs = append(errs, errors.New("fleet_refresh must not be negative"))
	}
	if a.TopPerformerLimit < 1 {
		errs = append(errs, errors.New("top_performer_limit must be positive"))
	}
	return errors.Join(errs...)
}

// Validate checks the settings needed to start the service
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Database.URL == "" {
		return errors.New("database url is required for the postgres driver")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka brokers and topic are required when ingestion is enabled")
	}
	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics: %w", err)
	}
	return nil
}

// Load loads configuration from a YAML file. Unset sections fall back to the
// environment defaults.
func Load(path string) (*Config, error) {
	loadDotEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := LoadFromEnv()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	loadDotEnv()

	defaults := DefaultAnalytics()
	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("PORT", 3010),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver:  getEnv("STORE_DRIVER", "memory"),
			Fixture: getEnv("STORE_FIXTURE", ""),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "opsight.db"),
		},
		Redis: RedisConfig{
			Enabled:   getEnvBool("REDIS_ENABLED", false),
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "opsight"),
			TTL:       getEnvDuration("REDIS_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:         getEnvBool("KAFKA_ENABLED", false),
			Brokers:         getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:           getEnv("KAFKA_TOPIC", "job-logs"),
			GroupID:         getEnv("KAFKA_GROUP_ID", "opsight"),
			DeadLetterTopic: getEnv("KAFKA_DLQ_TOPIC", "job-logs.dlq"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "opsight"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     getEnvBool("OTEL_INSECURE", true),
			SampleRatio:  getEnvFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
		Workers: WorkersConfig{
			Count:           getEnvInt("WORKERS", 8),
			QueueSize:       getEnvInt("WORKER_QUEUE_SIZE", 256),
			ShutdownTimeout: getEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Analytics: Analytics{
			WorldClassOEE:          getEnvFloat("OEE_WORLD_CLASS", defaults.WorldClassOEE),
			AcceptableOEE:          getEnvFloat("OEE_ACCEPTABLE", defaults.AcceptableOEE),
			LowOEE:                 getEnvFloat("OEE_LOW", defaults.LowOEE),
			PerformanceRate:        getEnvFloat("OEE_PERFORMANCE_RATE", defaults.PerformanceRate),
			TrendWindow:            getEnvInt("TREND_WINDOW", defaults.TrendWindow),
			TrendBand:              getEnvFloat("TREND_BAND", defaults.TrendBand),
			CauseShareThreshold:    getEnvFloat("CAUSE_SHARE_THRESHOLD", defaults.CauseShareThreshold),
			DataWindow:             getEnvDuration("DATA_WINDOW", defaults.DataWindow),
			DowntimeWindow:         getEnvDuration("DOWNTIME_WINDOW", defaults.DowntimeWindow),
			HistoryWindow:          getEnvDuration("HISTORY_WINDOW", defaults.HistoryWindow),
			RecommendationWindow:   getEnvDuration("RECOMMENDATION_WINDOW", defaults.RecommendationWindow),
			SkillDevelopmentWindow: getEnvDuration("SKILL_DEVELOPMENT_WINDOW", defaults.SkillDevelopmentWindow),
			TopPerformerWindow:     getEnvDuration("TOP_PERFORMER_WINDOW", defaults.TopPerformerWindow),
			ScheduleWindow:         getEnvDuration("SCHEDULE_WINDOW", defaults.ScheduleWindow),
			TopPerformerLimit:      getEnvInt("TOP_PERFORMER_LIMIT", defaults.TopPerformerLimit),
			FleetRefresh:           getEnvDuration("FLEET_REFRESH", 0),
		},
	}
}

// loadDotEnv reads .env when present; existing variables win
func loadDotEnv() {
	path := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
