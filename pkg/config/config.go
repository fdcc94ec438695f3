// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Extractor, Index, Writer, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Extractor ExtractorConfig `yaml:"extractor"`
	Index     IndexConfig     `yaml:"index"`
	Writer    WriterConfig    `yaml:"writer"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ExtractorConfig controls the sentence-graph and pattern-matching pass.
type ExtractorConfig struct {
	// LemgramSentinel is the attribute value meaning "no lemgram, use the
	// surface word instead".
	LemgramSentinel string `yaml:"lemgramSentinel"`
	// HeadNone is the dependency-head value meaning "token has no head".
	HeadNone string `yaml:"headNone"`
}

// IndexConfig controls the aggregation session.
type IndexConfig struct {
	// EvidenceCap is the maximum number of example sentences retained per
	// indexed relation.
	EvidenceCap int `yaml:"evidenceCap"`
}

// WriterConfig controls SQL generation and delivery.
type WriterConfig struct {
	// MaxStatementBytes is the byte threshold after which an insert batch is
	// cut and a new statement starts.
	MaxStatementBytes int `yaml:"maxStatementBytes"`
	// TablePrefix is prepended to every generated table name.
	TablePrefix string `yaml:"tablePrefix"`
	// Chunked flushes sentence evidence after every source unit instead of
	// holding all tables in memory until the end of the run.
	Chunked bool `yaml:"chunked"`
	// WithEvidence enables the optional sentence-evidence table.
	WithEvidence bool `yaml:"withEvidence"`
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnnotationUnits string `yaml:"annotationUnits"`
	IndexComplete   string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection and cache-invalidation parameters.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"poolSize"`
	VersionKey string `yaml:"versionKey"`
	// InvalidatePattern is the glob of downstream query-cache keys deleted
	// after an index swap.
	InvalidatePattern string `yaml:"invalidatePattern"`
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
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Extractor: ExtractorConfig{
			LemgramSentinel: "|",
			HeadNone:        "-",
		},
		Index: IndexConfig{
			EvidenceCap: 20,
		},
		Writer: WriterConfig{
			MaxStatementBytes: 900 * 1024,
			TablePrefix:       "relations",
			Chunked:           false,
			WithEvidence:      true,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wordrel",
			User:            "wordrel",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "wordrel-group",
			Topics: KafkaTopics{
				AnnotationUnits: "annotation-units",
				IndexComplete:   "index.complete",
			},
		},
		Redis: RedisConfig{
			Addr:              "localhost:6379",
			Password:          "",
			DB:                0,
			PoolSize:          10,
			VersionKey:        "relations:index:version",
			InvalidatePattern: "relations:query:*",
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

// applyEnvOverrides reads WR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("WR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WR_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("WR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WR_WRITER_MAX_STATEMENT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Writer.MaxStatementBytes = n
		}
	}
	if v := os.Getenv("WR_WRITER_TABLE_PREFIX"); v != "" {
		cfg.Writer.TablePrefix = v
	}
	if v := os.Getenv("WR_INDEX_EVIDENCE_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Index.EvidenceCap = n
		}
	}
	if v := os.Getenv("WR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WR_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
