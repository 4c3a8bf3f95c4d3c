// Package config defines the configuration structures for LexCite. No I/O
// lives here, only plain data types and validation; loading is in loader.go.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Input sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// PipelineConfig tunes the labeling pipeline.
type PipelineConfig struct {
	// Workers bounds the per-document worker pool.
	Workers int `mapstructure:"workers"`

	// MaskFields lists the text fields in which citation literals are
	// replaced by placeholder tokens.
	MaskFields []string `mapstructure:"mask_fields"`

	LawMaskToken    string `mapstructure:"law_mask_token"`
	RulingMaskToken string `mapstructure:"ruling_mask_token"`

	// RulingVocabularyCap keeps only the N most frequent ruling keys.
	// Zero means the default (1000); a negative value disables the cap.
	RulingVocabularyCap int `mapstructure:"ruling_vocabulary_cap"`

	// LawVocabularyCap is the same for laws. Zero or negative disables it.
	LawVocabularyCap int `mapstructure:"law_vocabulary_cap"`
}

// InputConfig selects where decisions and reference tables come from.
type InputConfig struct {
	Source string `mapstructure:"source"` // file | postgres

	DecisionsPath     string `mapstructure:"decisions_path"`
	AbbreviationsPath string `mapstructure:"abbreviations_path"`
	// RulingsPath is the optional reference corpus of available rulings.
	RulingsPath string `mapstructure:"rulings_path"`

	// Languages restricts the decisions that are loaded.
	Languages []string `mapstructure:"languages"`
	// Cantons restricts the abbreviation table rows ("ch" = federal law).
	Cantons []string `mapstructure:"cantons"`
	// Limit caps the number of decisions read; zero reads everything.
	Limit int `mapstructure:"limit"`
}

// OutputConfig controls the local dataset directory.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig configures the abbreviation table cache.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	TTL         time.Duration `mapstructure:"ttl"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Neo4jConfig configures the citation graph export.
type Neo4jConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	URI                   string `mapstructure:"uri"`
	User                  string `mapstructure:"user"`
	Password              string `mapstructure:"password"`
	Database              string `mapstructure:"database"`
	MaxConnectionPoolSize int    `mapstructure:"max_connection_pool_size"`
	BatchSize             int    `mapstructure:"batch_size"`
}

// MinIOConfig configures the dataset artifact upload.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	// UploadTimeout bounds a single artifact upload attempt.
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

// KafkaConfig configures the labeled query stream.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	RequiredAcks string        `mapstructure:"required_acks"` // none | one | all
	Compression  string        `mapstructure:"compression"`   // none | gzip | snappy | lz4 | zstd
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// OpenSearchConfig configures the query index used as a BM25 baseline.
type OpenSearchConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Addresses          []string      `mapstructure:"addresses"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Index              string        `mapstructure:"index"`
	BatchSize          int           `mapstructure:"batch_size"`
	Refresh            string        `mapstructure:"refresh"` // false | true | wait_for
	MaxRetries         int           `mapstructure:"max_retries"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// MetricsConfig configures run metrics.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	// PushgatewayURL, when set, receives the run metrics at the end of a build.
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	JobName        string `mapstructure:"job_name"`
	// ListenAddr, when set, serves /metrics for the duration of a build.
	ListenAddr string `mapstructure:"listen_addr"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration of a LexCite run.
type Config struct {
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Input      InputConfig      `mapstructure:"input"`
	Output     OutputConfig     `mapstructure:"output"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks the fully-populated Config and returns the first problem.
func (c *Config) Validate() error {
	// Pipeline
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("config: pipeline.workers must be ≥ 1, got %d", c.Pipeline.Workers)
	}
	if len(c.Pipeline.MaskFields) == 0 {
		return fmt.Errorf("config: pipeline.mask_fields must name at least one text field")
	}
	for _, f := range c.Pipeline.MaskFields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("config: pipeline.mask_fields contains an empty field name")
		}
	}
	if c.Pipeline.LawMaskToken == "" || c.Pipeline.RulingMaskToken == "" {
		return fmt.Errorf("config: pipeline mask tokens must not be empty")
	}
	if c.Pipeline.LawMaskToken == c.Pipeline.RulingMaskToken {
		return fmt.Errorf("config: pipeline.law_mask_token and pipeline.ruling_mask_token must differ")
	}

	// Input
	switch c.Input.Source {
	case SourceFile:
		if c.Input.DecisionsPath == "" {
			return fmt.Errorf("config: input.decisions_path is required for source %q", SourceFile)
		}
		if c.Input.AbbreviationsPath == "" {
			return fmt.Errorf("config: input.abbreviations_path is required for source %q", SourceFile)
		}
	case SourcePostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: input.source %q is invalid; expected file|postgres", c.Input.Source)
	}
	if c.Input.Limit < 0 {
		return fmt.Errorf("config: input.limit must be ≥ 0, got %d", c.Input.Limit)
	}

	// Output
	if c.Output.Dir == "" {
		return fmt.Errorf("config: output.dir is required")
	}

	// Optional collaborators
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Neo4j.Enabled {
		if c.Neo4j.URI == "" {
			return fmt.Errorf("config: neo4j.uri is required when neo4j is enabled")
		}
		if c.Neo4j.BatchSize < 1 {
			return fmt.Errorf("config: neo4j.batch_size must be ≥ 1, got %d", c.Neo4j.BatchSize)
		}
	}
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required when minio is enabled")
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required when kafka is enabled")
		}
		switch c.Kafka.RequiredAcks {
		case "none", "one", "all":
		default:
			return fmt.Errorf("config: kafka.required_acks %q is invalid; expected none|one|all", c.Kafka.RequiredAcks)
		}
	}
	if c.OpenSearch.Enabled {
		if err := c.OpenSearch.validate(); err != nil {
			return err
		}
	}

	// Metrics
	if c.Metrics.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.ListenAddr); err != nil {
			return fmt.Errorf("config: metrics.listen_addr %q is invalid: %v", c.Metrics.ListenAddr, err)
		}
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

func (d DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", d.Port)
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if d.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if d.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", d.MaxConns)
	}
	return nil
}

func (o OpenSearchConfig) validate() error {
	if len(o.Addresses) == 0 {
		return fmt.Errorf("config: opensearch.addresses must contain at least one node when opensearch is enabled")
	}
	if o.Index == "" || o.Index != strings.ToLower(o.Index) {
		return fmt.Errorf("config: opensearch.index %q must be a non-empty lowercase name", o.Index)
	}
	if o.BatchSize < 1 {
		return fmt.Errorf("config: opensearch.batch_size must be ≥ 1, got %d", o.BatchSize)
	}
	switch o.Refresh {
	case "false", "true", "wait_for":
	default:
		return fmt.Errorf("config: opensearch.refresh %q is invalid; expected false|true|wait_for", o.Refresh)
	}
	if o.MaxRetries < 0 {
		return fmt.Errorf("config: opensearch.max_retries must be ≥ 0, got %d", o.MaxRetries)
	}
	if o.RequestTimeout <= 0 {
		return fmt.Errorf("config: opensearch.request_timeout must be > 0")
	}
	return nil
}

// EffectiveRulingCap returns the ruling vocabulary cap with the "negative
// disables" convention resolved to 0.
func (p PipelineConfig) EffectiveRulingCap() int {
	if p.RulingVocabularyCap < 0 {
		return 0
	}
	return p.RulingVocabularyCap
}

// EffectiveLawCap returns the law vocabulary cap, 0 meaning uncapped.
func (p PipelineConfig) EffectiveLawCap() int {
	if p.LawVocabularyCap < 0 {
		return 0
	}
	return p.LawVocabularyCap
}
