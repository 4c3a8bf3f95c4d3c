package cli

import (
	"context"
	"time"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/config"
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
	"github.com/turtacn/LexCite/internal/infrastructure/database/neo4j"
	graphrepo "github.com/turtacn/LexCite/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/LexCite/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/LexCite/internal/infrastructure/database/postgres/repositories"
	rediscache "github.com/turtacn/LexCite/internal/infrastructure/database/redis"
	"github.com/turtacn/LexCite/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/internal/infrastructure/search/opensearch"
	"github.com/turtacn/LexCite/internal/infrastructure/storage/local"
	miniostore "github.com/turtacn/LexCite/internal/infrastructure/storage/minio"
	"github.com/turtacn/LexCite/pkg/errors"
)

// sinkShutdownGrace bounds how long Close waits for a sink's in-flight
// uploads after the build returned.
const sinkShutdownGrace = 10 * time.Second

// dependencies holds the adapters of one command run. Close releases them
// in reverse order of opening.
type dependencies struct {
	decisions     decision.Source
	abbreviations citation.AbbreviationSource
	rulings       citation.RulingSource
	sinks         []labeling.Sink

	closers []func()
	logger  logging.Logger
}

func (d *dependencies) onClose(fn func()) { d.closers = append(d.closers, fn) }

// onShutdown registers a sink whose worker pool must drain before its
// client is released.
func (d *dependencies) onShutdown(name string, shutdown func(context.Context) error) {
	d.onClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkShutdownGrace)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logging.OrNop(d.logger).Warn("sink did not drain", logging.String("sink", name), logging.Err(err))
		}
	})
}

// Close releases every opened adapter.
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// openSources connects the decision and reference table sources selected by
// cfg.Input.Source. A Redis cache failure only disables the cache.
func openSources(ctx context.Context, cfg *config.Config, logger logging.Logger) (*dependencies, error) {
	deps := &dependencies{logger: logger}
	filter := decision.Filter{Languages: cfg.Input.Languages, Limit: cfg.Input.Limit}

	switch cfg.Input.Source {
	case config.SourcePostgres:
		pool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatasetLoadFailed, "failed to open decision database")
		}
		deps.onClose(func() { postgres.Close(pool) })
		deps.decisions = pgrepo.NewDecisionRepository(pool, filter, logger)
		deps.abbreviations = pgrepo.NewAbbreviationRepository(pool)
	default:
		deps.decisions = local.NewDecisionFile(cfg.Input.DecisionsPath, filter, logger)
		deps.abbreviations = local.NewAbbreviationFile(cfg.Input.AbbreviationsPath)
	}

	if cfg.Input.RulingsPath != "" {
		deps.rulings = local.NewRulingFile(cfg.Input.RulingsPath)
	}

	if cfg.Redis.Enabled {
		client, err := rediscache.NewClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("abbreviation cache disabled", logging.Err(err))
		} else {
			deps.onClose(func() { _ = client.Close() })
			deps.abbreviations = rediscache.NewAbbreviationCache(client, deps.abbreviations, logger,
				rediscache.WithPrefix(cfg.Redis.KeyPrefix),
				rediscache.WithTTL(cfg.Redis.TTL),
			)
		}
	}
	return deps, nil
}

// openSinks appends the output sinks: the local directory always, then
// MinIO, Kafka, Neo4j and OpenSearch when enabled.
func (d *dependencies) openSinks(cfg *config.Config) error {
	d.sinks = append(d.sinks, local.NewDatasetWriter(cfg.Output.Dir, d.logger))

	if cfg.MinIO.Enabled {
		client, err := miniostore.NewMinIOClient(cfg.MinIO, d.logger)
		if err != nil {
			return err
		}
		d.onClose(func() { _ = client.Close() })
		store := miniostore.NewArtifactStore(client, cfg.MinIO.Prefix, d.logger,
			miniostore.WithUploadTimeout(cfg.MinIO.UploadTimeout))
		d.onShutdown(store.Name(), store.Close)
		d.sinks = append(d.sinks, store)
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka, d.logger)
		if err != nil {
			return err
		}
		d.onClose(func() { _ = producer.Close() })
		d.sinks = append(d.sinks, kafka.NewQueryPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.BatchSize, d.logger))
	}

	if cfg.Neo4j.Enabled {
		driver, err := neo4j.NewDriver(cfg.Neo4j, d.logger)
		if err != nil {
			return err
		}
		d.onClose(func() { _ = driver.Close() })
		d.sinks = append(d.sinks, graphrepo.NewCitationGraphWriter(driver, cfg.Neo4j.BatchSize, d.logger))
	}

	if cfg.OpenSearch.Enabled {
		client, err := opensearch.NewClient(cfg.OpenSearch, d.logger)
		if err != nil {
			return err
		}
		d.onClose(func() { _ = client.Close() })
		indexer := opensearch.NewQueryIndexer(client, opensearch.IndexerConfig{
			Index:         cfg.OpenSearch.Index,
			BulkBatchSize: cfg.OpenSearch.BatchSize,
			BulkTimeout:   cfg.OpenSearch.RequestTimeout,
			BulkRetries:   cfg.OpenSearch.MaxRetries,
			RefreshPolicy: cfg.OpenSearch.Refresh,
		}, d.logger)
		d.onShutdown(indexer.Name(), indexer.Close)
		d.sinks = append(d.sinks, indexer)
	}
	return nil
}

// serviceConfig maps the configuration onto the labeling service.
func serviceConfig(cfg *config.Config, failOnAmbiguity, dryRun bool) labeling.ServiceConfig {
	caps := map[citation.Type]int{}
	if n := cfg.Pipeline.EffectiveLawCap(); n > 0 {
		caps[citation.TypeLaw] = n
	}
	if n := cfg.Pipeline.EffectiveRulingCap(); n > 0 {
		caps[citation.TypeRuling] = n
	}
	return labeling.ServiceConfig{
		Pipeline: labeling.Options{
			Workers:        cfg.Pipeline.Workers,
			VocabularyCaps: caps,
		},
		MaskFields:      cfg.Pipeline.MaskFields,
		LawMaskToken:    cfg.Pipeline.LawMaskToken,
		RulingMaskToken: cfg.Pipeline.RulingMaskToken,
		Cantons:         cfg.Input.Cantons,
		FailOnAmbiguity: failOnAmbiguity,
		DryRun:          dryRun,
	}
}
