package config

import (
	"runtime"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultRulingVocabularyCap = 1000
	DefaultLawMaskToken        = "<ref-law>"
	DefaultRulingMaskToken     = "<ref-ruling>"

	DefaultSource            = SourceFile
	DefaultDecisionsPath     = "data/decisions.jsonl"
	DefaultAbbreviationsPath = "data/lexfind.jsonl"
	DefaultOutputDir         = "dataset/doc2doc_ir"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "scrc"
	DefaultDBSSLMode  = "disable"
	DefaultDBMaxConns = 8

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "lexcite:"
	DefaultRedisTTL       = 24 * time.Hour

	DefaultNeo4jDatabase  = "neo4j"
	DefaultNeo4jBatchSize = 500

	DefaultMinIOBucket        = "lexcite-datasets"
	DefaultMinIOPrefix        = "doc2doc_ir"
	DefaultMinIOUploadTimeout = 2 * time.Minute

	DefaultKafkaTopic        = "lexcite.queries"
	DefaultKafkaRequiredAcks = "one"
	DefaultKafkaBatchSize    = 100

	DefaultOpenSearchAddress        = "http://localhost:9200"
	DefaultOpenSearchIndex          = "lexcite-queries"
	DefaultOpenSearchBatchSize      = 500
	DefaultOpenSearchRefresh        = "false"
	DefaultOpenSearchMaxRetries     = 3
	DefaultOpenSearchRequestTimeout = 30 * time.Second

	DefaultMetricsNamespace = "lexcite"
	DefaultMetricsJobName   = "lexcite_build"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultMaskFields are the decision sections that get masked.
var DefaultMaskFields = []string{"facts", "considerations"}

// DefaultLanguages are the decision languages LexCite can parse.
var DefaultLanguages = []string{"de", "fr", "it"}

// DefaultCantons keeps federal legislation only.
var DefaultCantons = []string{"ch"}

// ApplyDefaults fills zero-value fields in cfg. Explicitly set values win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = runtime.NumCPU()
	}
	if len(cfg.Pipeline.MaskFields) == 0 {
		cfg.Pipeline.MaskFields = append([]string(nil), DefaultMaskFields...)
	}
	if cfg.Pipeline.LawMaskToken == "" {
		cfg.Pipeline.LawMaskToken = DefaultLawMaskToken
	}
	if cfg.Pipeline.RulingMaskToken == "" {
		cfg.Pipeline.RulingMaskToken = DefaultRulingMaskToken
	}
	if cfg.Pipeline.RulingVocabularyCap == 0 {
		cfg.Pipeline.RulingVocabularyCap = DefaultRulingVocabularyCap
	}

	// ── Input ─────────────────────────────────────────────────────────────────
	if cfg.Input.Source == "" {
		cfg.Input.Source = DefaultSource
	}
	if cfg.Input.Source == SourceFile {
		if cfg.Input.DecisionsPath == "" {
			cfg.Input.DecisionsPath = DefaultDecisionsPath
		}
		if cfg.Input.AbbreviationsPath == "" {
			cfg.Input.AbbreviationsPath = DefaultAbbreviationsPath
		}
	}
	if len(cfg.Input.Languages) == 0 {
		cfg.Input.Languages = append([]string(nil), DefaultLanguages...)
	}
	if len(cfg.Input.Cantons) == 0 {
		cfg.Input.Cantons = append([]string(nil), DefaultCantons...)
	}

	// ── Output ────────────────────────────────────────────────────────────────
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultRedisTTL
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = DefaultNeo4jDatabase
	}
	if cfg.Neo4j.BatchSize == 0 {
		cfg.Neo4j.BatchSize = DefaultNeo4jBatchSize
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.Prefix == "" {
		cfg.MinIO.Prefix = DefaultMinIOPrefix
	}
	if cfg.MinIO.UploadTimeout == 0 {
		cfg.MinIO.UploadTimeout = DefaultMinIOUploadTimeout
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.RequiredAcks == "" {
		cfg.Kafka.RequiredAcks = DefaultKafkaRequiredAcks
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddress}
	}
	if cfg.OpenSearch.Index == "" {
		cfg.OpenSearch.Index = DefaultOpenSearchIndex
	}
	if cfg.OpenSearch.BatchSize == 0 {
		cfg.OpenSearch.BatchSize = DefaultOpenSearchBatchSize
	}
	if cfg.OpenSearch.Refresh == "" {
		cfg.OpenSearch.Refresh = DefaultOpenSearchRefresh
	}
	if cfg.OpenSearch.MaxRetries == 0 {
		cfg.OpenSearch.MaxRetries = DefaultOpenSearchMaxRetries
	}
	if cfg.OpenSearch.RequestTimeout == 0 {
		cfg.OpenSearch.RequestTimeout = DefaultOpenSearchRequestTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.JobName == "" {
		cfg.Metrics.JobName = DefaultMetricsJobName
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// NewDefaultConfig returns a Config with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
