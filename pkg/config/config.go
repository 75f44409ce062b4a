// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Source, Postgres, Redis, Kafka, Rider, Index, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds understood by the frame loader.
const (
	SourceHTTP     = "http"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Duplicate tuple policies for the index tree.
const (
	DuplicateKeepFirst = "keep_first"
	DuplicateFail      = "fail"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Rider    RiderConfig    `yaml:"rider"`
	Index    IndexConfig    `yaml:"index"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// SourceConfig selects where raw frame records come from and how hard the
// loader tries before giving up.
type SourceConfig struct {
	Kind    string        `yaml:"kind"`
	URL     string        `yaml:"url"`
	Path    string        `yaml:"path"`
	Watch   bool          `yaml:"watch"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// RetryConfig controls backoff between fetch attempts.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
}

// BreakerConfig controls the circuit breaker around the frame source.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the nearest-frames cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds broker and topic settings for catalogue events. No
// brokers means events are not published.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	EventsTopic string   `yaml:"eventsTopic"`
}

// RiderConfig holds the rider position every frame geometry is computed for.
type RiderConfig struct {
	SaddleHeight  float64 `yaml:"saddleHeight"`
	SaddleForeAft float64 `yaml:"saddleForeAft"`
}

// IndexConfig controls tree building, ranking limits and reload cadence.
type IndexConfig struct {
	DuplicatePolicy string        `yaml:"duplicatePolicy"`
	DefaultLimit    int           `yaml:"defaultLimit"`
	MaxLimit        int           `yaml:"maxLimit"`
	ReloadInterval  time.Duration `yaml:"reloadInterval"`
	// ReloadsPerMinute caps manual reloads per client; 0 disables the cap.
	ReloadsPerMinute int `yaml:"reloadsPerMinute"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults; the result is validated
// before it is returned.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceHTTP:
		if c.Source.URL == "" {
			return fmt.Errorf("source.url is required for kind %q", c.Source.Kind)
		}
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for kind %q", c.Source.Kind)
		}
	case SourcePostgres:
		if c.Postgres.Table == "" {
			return fmt.Errorf("postgres.table is required for kind %q", c.Source.Kind)
		}
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}
	switch c.Index.DuplicatePolicy {
	case DuplicateKeepFirst, DuplicateFail:
	default:
		return fmt.Errorf("unknown index.duplicatePolicy %q", c.Index.DuplicatePolicy)
	}
	if c.Rider.SaddleHeight <= 0 {
		return fmt.Errorf("rider.saddleHeight must be positive, got %v", c.Rider.SaddleHeight)
	}
	if c.Rider.SaddleForeAft < 0 || c.Rider.SaddleForeAft >= c.Rider.SaddleHeight {
		return fmt.Errorf("rider.saddleForeAft must be in [0, saddleHeight), got %v", c.Rider.SaddleForeAft)
	}
	if c.Index.ReloadsPerMinute < 0 {
		return fmt.Errorf("index.reloadsPerMinute must not be negative, got %d", c.Index.ReloadsPerMinute)
	}
	if c.Index.DefaultLimit <= 0 || c.Index.MaxLimit < c.Index.DefaultLimit {
		return fmt.Errorf("index limits invalid: default=%d max=%d", c.Index.DefaultLimit, c.Index.MaxLimit)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development against the catalogue API on port 8080.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8090,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Source: SourceConfig{
			Kind:    SourceHTTP,
			URL:     "http://localhost:8080/all",
			Timeout: 10 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     5 * time.Second,
			},
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "frames",
			User:            "frames",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "frames",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			EventsTopic: "frame-catalogue-events",
		},
		Rider: RiderConfig{
			SaddleHeight:  74.5,
			SaddleForeAft: 20.5,
		},
		Index: IndexConfig{
			DuplicatePolicy: DuplicateKeepFirst,
			DefaultLimit:     10,
			MaxLimit:         100,
			ReloadsPerMinute: 6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads FI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FI_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("FI_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("FI_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("FI_SOURCE_WATCH"); v != "" {
		if watch, err := strconv.ParseBool(v); err == nil {
			cfg.Source.Watch = watch
		}
	}
	if v := os.Getenv("FI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FI_RIDER_SADDLE_HEIGHT"); v != "" {
		if h, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Rider.SaddleHeight = h
		}
	}
	if v := os.Getenv("FI_RIDER_SADDLE_FORE_AFT"); v != "" {
		if fa, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Rider.SaddleForeAft = fa
		}
	}
	if v := os.Getenv("FI_INDEX_DUPLICATE_POLICY"); v != "" {
		cfg.Index.DuplicatePolicy = v
	}
	if v := os.Getenv("FI_INDEX_RELOADS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.ReloadsPerMinute = n
		}
	}
	if v := os.Getenv("FI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
