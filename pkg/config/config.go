// Package config loads and validates the phrase-book service configuration
// from a YAML file with environment-variable overrides. Every subsystem
// (server, dataset source, loader, stores, analytics, logging) has a typed
// section.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds understood by Source.Kind.
const (
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourceRedis    = "redis"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Loader    LoaderConfig    `yaml:"loader"`
	Search    SearchConfig    `yaml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimitPerMinute caps requests per client IP. Zero disables it.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// SourceConfig says where the phrase-book document is fetched from. Only
// the fields relevant to Kind are read.
type SourceConfig struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`
	URL      string `yaml:"url"`
	RedisKey string `yaml:"redisKey"`
	Name     string `yaml:"name"`
}

// LoaderConfig controls the dataset loader.
type LoaderConfig struct {
	RetryOnFailure bool          `yaml:"retryOnFailure"`
	FetchTimeout   time.Duration `yaml:"fetchTimeout"`
	FetchAttempts  int           `yaml:"fetchAttempts"`
	RetryBackoff   time.Duration `yaml:"retryBackoff"`
	Preload        bool          `yaml:"preload"`
}

// SearchConfig bounds lookup responses.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
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

// SQLiteConfig points at a local SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// KafkaConfig holds Kafka broker and topic settings. With no brokers,
// lookup events are aggregated in process.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

type KafkaTopics struct {
	LookupEvents string `yaml:"lookupEvents"`
}

// AnalyticsConfig controls lookup event collection. Persist snapshots the
// aggregated stats every SnapshotInterval to Store: "postgres" (the
// postgres section) or "sqlite" (the sqlite section).
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	Persist          bool          `yaml:"persist"`
	Store            string        `yaml:"store"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
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

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
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
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Source: SourceConfig{
			Kind:     SourceFile,
			Path:     "data/phrase-book.json",
			RedisKey: "phrasebook:document",
			Name:     "default",
		},
		Loader: LoaderConfig{
			FetchTimeout:  30 * time.Second,
			FetchAttempts: 3,
			RetryBackoff:  500 * time.Millisecond,
		},
		Search: SearchConfig{
			DefaultLimit: 0,
			MaxResults:   1000,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "phrasebook",
			User:            "phrasebook",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "data/phrasebook.db",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "phrasebook-analytics",
			Topics: KafkaTopics{
				LookupEvents: "phrasebook.lookups",
			},
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			Store:            SourcePostgres,
			SnapshotInterval: time.Minute,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
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

// Validate checks that the selected source is fully described.
func (c *Config) Validate() error {
	var errs []error
	switch c.Source.Kind {
	case SourceFile:
		if c.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required for file sources"))
		}
	case SourceHTTP:
		if c.Source.URL == "" {
			errs = append(errs, errors.New("source.url is required for http sources"))
		}
	case SourceRedis:
		if c.Source.RedisKey == "" {
			errs = append(errs, errors.New("source.redisKey is required for redis sources"))
		}
	case SourcePostgres, SourceSQLite:
		if c.Source.Name == "" {
			errs = append(errs, errors.New("source.name is required for sql sources"))
		}
		if c.Source.Kind == SourceSQLite && c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required for sqlite sources"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.kind %q", c.Source.Kind))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("server.rateLimitPerMinute must not be negative"))
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxResults < 0 {
		errs = append(errs, errors.New("search limits must not be negative"))
	}
	if c.Analytics.Persist && !c.Analytics.Enabled {
		errs = append(errs, errors.New("analytics.persist requires analytics.enabled"))
	}
	if c.Analytics.Persist && c.Analytics.Store != SourcePostgres && c.Analytics.Store != SourceSQLite {
		errs = append(errs, fmt.Errorf("unknown analytics.store %q", c.Analytics.Store))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides reads PB_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PB_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PB_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("PB_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("PB_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("PB_SERVER_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("PB_SOURCE_REDIS_KEY"); v != "" {
		cfg.Source.RedisKey = v
	}
	if v := os.Getenv("PB_SOURCE_NAME"); v != "" {
		cfg.Source.Name = v
	}
	if v := os.Getenv("PB_LOADER_RETRY_ON_FAILURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Loader.RetryOnFailure = b
		}
	}
	if v := os.Getenv("PB_LOADER_FETCH_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Loader.FetchAttempts = n
		}
	}
	if v := os.Getenv("PB_LOADER_PRELOAD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Loader.Preload = b
		}
	}
	if v := os.Getenv("PB_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("PB_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("PB_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("PB_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("PB_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PB_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("PB_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PB_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PB_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PB_ANALYTICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = b
		}
	}
	if v := os.Getenv("PB_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PB_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
