package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

const abbreviationsKey = "abbreviations:v1"

var ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "abbreviation cache serialization failed")

// CacheOption configures an AbbreviationCache.
type CacheOption func(*AbbreviationCache)

// WithPrefix sets the key prefix, "lexcite:" by default.
func WithPrefix(prefix string) CacheOption {
	return func(c *AbbreviationCache) { c.prefix = prefix }
}

// WithTTL sets the entry lifetime. Zero stores entries without expiry.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *AbbreviationCache) { c.ttl = ttl }
}

// AbbreviationCache decorates a citation.AbbreviationSource with a Redis
// read-through cache. The whole row set is stored as one JSON value.
//
// Redis failures never fail a load: the cache logs them and falls back to the
// wrapped source.
type AbbreviationCache struct {
	client *Client
	source citation.AbbreviationSource
	logger logging.Logger
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

var _ citation.AbbreviationSource = (*AbbreviationCache)(nil)

// NewAbbreviationCache wraps source.
func NewAbbreviationCache(client *Client, source citation.AbbreviationSource, log logging.Logger, opts ...CacheOption) *AbbreviationCache {
	c := &AbbreviationCache{
		client: client,
		source: source,
		logger: logging.OrNop(log),
		prefix: "lexcite:",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AbbreviationCache) key() string {
	return c.prefix + abbreviationsKey
}

// jitterTTL spreads expiries by +/- 10%.
func (c *AbbreviationCache) jitterTTL() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitter := float64(c.ttl) * 0.1 * (rand.Float64()*2 - 1)
	return c.ttl + time.Duration(jitter)
}

// AbbreviationRows returns the cached rows, loading and storing them on a
// miss. Concurrent misses share one load.
func (c *AbbreviationCache) AbbreviationRows(ctx context.Context) ([]citation.AbbreviationRow, error) {
	rows, hit, err := c.get(ctx)
	if err != nil {
		c.logger.Warn("Abbreviation cache read failed, using source", logging.Err(err))
	}
	if hit {
		c.logger.Debug("Abbreviation cache hit", logging.Int("rows", len(rows)))
		return rows, nil
	}

	val, err, _ := c.group.Do(c.key(), func() (interface{}, error) {
		loaded, loadErr := c.source.AbbreviationRows(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.set(ctx, loaded); setErr != nil {
			c.logger.Warn("Failed to store abbreviation rows in cache", logging.Err(setErr))
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]citation.AbbreviationRow), nil
}

// Invalidate drops the cached rows.
func (c *AbbreviationCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to invalidate abbreviation cache")
	}
	return nil
}

func (c *AbbreviationCache) get(ctx context.Context) ([]citation.AbbreviationRow, bool, error) {
	data, err := c.client.Get(ctx, c.key()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	var rows []citation.AbbreviationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false, ErrSerializationFailed.WithCause(err)
	}
	return rows, true, nil
}

func (c *AbbreviationCache) set(ctx context.Context, rows []citation.AbbreviationRow) error {
	if rows == nil {
		rows = []citation.AbbreviationRow{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return c.client.Set(ctx, c.key(), data, c.jitterTTL()).Err()
}
