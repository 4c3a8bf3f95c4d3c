// Package opensearch indexes labeled queries into OpenSearch so that the
// dataset ships with a ready BM25 baseline over the masked decision text.
package opensearch

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	opensearchgo "github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/LexCite/internal/config"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

var (
	ErrInvalidConfig    = errors.New(errors.ErrCodeValidation, "invalid opensearch configuration")
	ErrConnectionFailed = errors.New(errors.ErrCodeExternalService, "opensearch connection failed")
)

const (
	defaultMaxIdleConnsPerHost = 10
	defaultRetryBackoff        = 100 * time.Millisecond
)

// Doer is the part of *opensearchgo.Client the package uses.
type Doer interface {
	Do(ctx context.Context, req opensearchgo.Request, dataPointer interface{}) (*opensearchgo.Response, error)
}

// Client issues requests against one OpenSearch cluster.
type Client struct {
	doer   Doer
	logger logging.Logger
}

// NewClient connects to cfg.Addresses and pings the cluster once.
func NewClient(cfg config.OpenSearchConfig, log logging.Logger) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	raw, err := opensearchgo.NewClient(opensearchgo.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		Transport:     transport,
		MaxRetries:    cfg.MaxRetries,
		RetryOnStatus: []int{429, 502, 503, 504},
		RetryBackoff:  func(attempt int) time.Duration { return time.Duration(attempt) * defaultRetryBackoff },
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create opensearch client")
	}

	c := NewClientWithDoer(raw, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("OpenSearch client connected", logging.Strings("addresses", cfg.Addresses))
	return c, nil
}

// NewClientWithDoer wraps an existing client.
func NewClientWithDoer(doer Doer, log logging.Logger) *Client {
	return &Client{
		doer:   doer,
		logger: logging.OrNop(log).Named("opensearch"),
	}
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doer.Do(ctx, opensearchapi.PingReq{}, nil)
	if err != nil {
		c.logger.Warn("OpenSearch ping failed", logging.Err(err))
		return ErrConnectionFailed.WithCause(err)
	}
	defer closeBody(resp)

	if resp.IsError() {
		c.logger.Warn("OpenSearch ping returned error status", logging.Int("status", resp.StatusCode))
		return ErrConnectionFailed.WithDetailf("ping returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases nothing; the HTTP transport keeps no state worth draining.
func (c *Client) Close() error {
	c.logger.Debug("OpenSearch client closed")
	return nil
}

func (c *Client) do(ctx context.Context, req opensearchgo.Request) (*opensearchgo.Response, error) {
	return c.doer.Do(ctx, req, nil)
}

// ValidateConfig checks the settings NewClient depends on.
func ValidateConfig(cfg config.OpenSearchConfig) error {
	if len(cfg.Addresses) == 0 {
		return ErrInvalidConfig.WithDetail("at least one address is required")
	}
	if cfg.MaxRetries < 0 {
		return ErrInvalidConfig.WithDetail("max_retries must be >= 0")
	}
	if cfg.RequestTimeout <= 0 {
		return ErrInvalidConfig.WithDetail("request_timeout must be > 0")
	}
	return nil
}

func closeBody(resp *opensearchgo.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}
