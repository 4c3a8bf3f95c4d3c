// Package common holds the bounded worker pool shared by the labeling
// pipeline and the output sinks.
package common

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

// ---------------------------------------------------------------------------
// Sentinel Errors
// ---------------------------------------------------------------------------

var ErrShutdown = stdliberrors.New("batch processor is shutting down")

// ---------------------------------------------------------------------------
// ItemStatus enumeration
// ---------------------------------------------------------------------------

// ItemStatus represents the outcome status of a single batch item.
type ItemStatus int

const (
	ItemStatusSuccess   ItemStatus = iota // processing completed successfully
	ItemStatusFailed                      // processing failed with an error
	ItemStatusTimeout                     // processing exceeded its timeout
	ItemStatusCancelled                   // never ran or was cut short by cancellation
)

// String returns the human-readable representation of an ItemStatus.
func (s ItemStatus) String() string {
	switch s {
	case ItemStatusSuccess:
		return "SUCCESS"
	case ItemStatusFailed:
		return "FAILED"
	case ItemStatusTimeout:
		return "TIMEOUT"
	case ItemStatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// ---------------------------------------------------------------------------
// Generic types
// ---------------------------------------------------------------------------

// ProcessFunc processes the item at index idx.
type ProcessFunc[T, R any] func(ctx context.Context, idx int, item T) (R, error)

// ItemResult holds the outcome of processing a single item.
type ItemResult[R any] struct {
	Index    int
	Result   R
	Error    error
	Duration time.Duration
	Status   ItemStatus
}

// BatchResult aggregates the outcomes of one Process call. Results[i]
// always belongs to items[i].
type BatchResult[R any] struct {
	Results       []*ItemResult[R]
	TotalCount    int
	SuccessCount  int
	FailureCount  int
	TotalDuration time.Duration
}

// Values returns the results of the successful items in input order.
func (b *BatchResult[R]) Values() []R {
	out := make([]R, 0, b.SuccessCount)
	for _, r := range b.Results {
		if r.Status == ItemStatusSuccess {
			out = append(out, r.Result)
		}
	}
	return out
}

// Count returns the number of items that ended with status s.
func (b *BatchResult[R]) Count(s ItemStatus) int {
	n := 0
	for _, r := range b.Results {
		if r != nil && r.Status == s {
			n++
		}
	}
	return n
}

// FirstError returns the error of the lowest-index failed item.
func (b *BatchResult[R]) FirstError() error {
	for _, r := range b.Results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}

// BatchProcessor runs a function over a slice of items with bounded
// concurrency.
type BatchProcessor[T, R any] interface {
	// Process executes fn for every item. The returned error is non-nil
	// only when the batch was aborted: fn is nil, the processor is shut
	// down, or an item failed with a stop error (see WithStopOn).
	Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*BatchResult[R], error)

	// Shutdown waits for in-flight batches. No new batches are accepted.
	Shutdown(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// RetryPolicy
// ---------------------------------------------------------------------------

// RetryPolicy governs how failed items are retried.
type RetryPolicy struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// RetryableErrors restricts retries to errors matching one of these
	// under errors.Is. Empty means every error is retried.
	RetryableErrors []error
}

func shouldRetry(err error, policy *RetryPolicy) bool {
	if policy == nil || err == nil {
		return false
	}
	if len(policy.RetryableErrors) == 0 {
		return true
	}
	for _, re := range policy.RetryableErrors {
		if stdliberrors.Is(err, re) {
			return true
		}
	}
	return false
}

// calculateBackoff returns the delay before the attempt-th retry:
// exponential with ±25 % jitter, capped at MaxBackoff.
func calculateBackoff(attempt int, policy *RetryPolicy) time.Duration {
	if policy == nil || policy.InitialBackoff <= 0 {
		return 0
	}
	multiplier := policy.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	base := float64(policy.InitialBackoff) * math.Pow(multiplier, float64(attempt))
	if policy.MaxBackoff > 0 && base > float64(policy.MaxBackoff) {
		base = float64(policy.MaxBackoff)
	}
	jitter := base * 0.25 * (rand.Float64()*2 - 1)
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// ---------------------------------------------------------------------------
// BatchOption functional options
// ---------------------------------------------------------------------------

type batchConfig struct {
	name           string
	maxConcurrency int
	itemTimeout    time.Duration
	retryPolicy    *RetryPolicy
	stopOn         func(error) bool
	logger         logging.Logger
}

func defaultBatchConfig() *batchConfig {
	return &batchConfig{
		name:           "batch",
		maxConcurrency: runtime.NumCPU(),
	}
}

// BatchOption configures a batchProcessor.
type BatchOption func(*batchConfig)

// WithName labels the processor in log output.
func WithName(name string) BatchOption {
	return func(c *batchConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithMaxConcurrency sets the maximum number of items processed concurrently.
func WithMaxConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithItemTimeout sets a per-item timeout. Zero, the default, means none.
func WithItemTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.itemTimeout = d
		}
	}
}

// WithRetryPolicyFull configures a complete retry policy.
func WithRetryPolicyFull(policy *RetryPolicy) BatchOption {
	return func(c *batchConfig) {
		c.retryPolicy = policy
	}
}

// WithStopOn aborts the whole batch as soon as an item fails with an error
// for which stop returns true. Items that have not started are reported as
// cancelled, and Process returns the stop error.
func WithStopOn(stop func(error) bool) BatchOption {
	return func(c *batchConfig) {
		c.stopOn = stop
	}
}

// WithBatchLogger injects a logger.
func WithBatchLogger(l logging.Logger) BatchOption {
	return func(c *batchConfig) {
		c.logger = l
	}
}

// ---------------------------------------------------------------------------
// batchProcessor implementation
// ---------------------------------------------------------------------------

type batchProcessor[T, R any] struct {
	cfg    *batchConfig
	logger logging.Logger

	shutdownOnce sync.Once
	isShutdown   atomic.Bool
	activeWg     sync.WaitGroup
}

// NewBatchProcessor creates a new BatchProcessor with the supplied options.
func NewBatchProcessor[T, R any](opts ...BatchOption) BatchProcessor[T, R] {
	cfg := defaultBatchConfig()
	for _, o := range opts {
		o(cfg)
	}
	return &batchProcessor[T, R]{
		cfg:    cfg,
		logger: logging.OrNop(cfg.logger).Named(cfg.name),
	}
}

func (bp *batchProcessor[T, R]) Process(
	ctx context.Context,
	items []T,
	fn ProcessFunc[T, R],
) (*BatchResult[R], error) {
	if fn == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "process function must not be nil")
	}
	if bp.isShutdown.Load() {
		return nil, ErrShutdown
	}
	n := len(items)
	if n == 0 {
		return &BatchResult[R]{Results: []*ItemResult[R]{}}, nil
	}

	bp.activeWg.Add(1)
	defer bp.activeWg.Done()

	batchStart := time.Now()
	batchCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		stopOnce sync.Once
		stopErr  error
	)
	results := make([]*ItemResult[R], n)
	sem := make(chan struct{}, bp.cfg.maxConcurrency)

	var wg sync.WaitGroup
dispatch:
	for i := 0; i < n; i++ {
		// Acquire in the dispatcher so that items start in index order.
		select {
		case sem <- struct{}{}:
		case <-batchCtx.Done():
			for j := i; j < n; j++ {
				results[j] = cancelledResult[R](batchCtx, j)
			}
			break dispatch
		}

		wg.Add(1)
		go func(idx int, item T) {
			defer wg.Done()
			defer func() { <-sem }()

			ir := bp.processOneItem(batchCtx, idx, item, fn)
			results[idx] = ir
			if ir.Error != nil && bp.cfg.stopOn != nil && bp.cfg.stopOn(ir.Error) {
				stopOnce.Do(func() {
					stopErr = ir.Error
					cancel(ir.Error)
				})
			}
		}(i, items[i])
	}
	wg.Wait()

	br := buildBatchResult(results, time.Since(batchStart))
	bp.logger.Debug("batch finished",
		logging.Int("total", br.TotalCount),
		logging.Int("succeeded", br.SuccessCount),
		logging.Int("failed", br.FailureCount),
		logging.Duration("duration", br.TotalDuration),
	)

	if stopErr != nil {
		return br, stopErr
	}
	if err := ctx.Err(); err != nil {
		return br, err
	}
	return br, nil
}

func (bp *batchProcessor[T, R]) Shutdown(ctx context.Context) error {
	bp.shutdownOnce.Do(func() {
		bp.isShutdown.Store(true)
	})

	done := make(chan struct{})
	go func() {
		bp.activeWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// ---------------------------------------------------------------------------
// processOneItem: per-item logic with retry
// ---------------------------------------------------------------------------

func (bp *batchProcessor[T, R]) processOneItem(
	batchCtx context.Context,
	idx int,
	item T,
	fn ProcessFunc[T, R],
) *ItemResult[R] {
	itemStart := time.Now()

	maxAttempts := 1
	if bp.cfg.retryPolicy != nil && bp.cfg.retryPolicy.MaxRetries > 0 {
		maxAttempts = 1 + bp.cfg.retryPolicy.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if batchCtx.Err() != nil {
			return cancelledResult[R](batchCtx, idx)
		}
		if attempt > 0 {
			if delay := calculateBackoff(attempt-1, bp.cfg.retryPolicy); delay > 0 {
				select {
				case <-batchCtx.Done():
					return cancelledResult[R](batchCtx, idx)
				case <-time.After(delay):
				}
			}
			bp.logger.Debug("retrying item", logging.Int("index", idx), logging.Int("attempt", attempt), logging.Err(lastErr))
		}

		itemCtx, itemCancel := batchCtx, context.CancelFunc(func() {})
		if bp.cfg.itemTimeout > 0 {
			itemCtx, itemCancel = context.WithTimeout(batchCtx, bp.cfg.itemTimeout)
		}
		result, err := fn(itemCtx, idx, item)
		itemCancel()

		if err == nil {
			return &ItemResult[R]{
				Index:    idx,
				Result:   result,
				Status:   ItemStatusSuccess,
				Duration: time.Since(itemStart),
			}
		}

		lastErr = err
		if bp.cfg.stopOn != nil && bp.cfg.stopOn(err) {
			break
		}
		if attempt < maxAttempts-1 && shouldRetry(err, bp.cfg.retryPolicy) {
			continue
		}
		break
	}

	return &ItemResult[R]{
		Index:    idx,
		Error:    lastErr,
		Status:   classifyError(lastErr),
		Duration: time.Since(itemStart),
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func cancelledResult[R any](ctx context.Context, idx int) *ItemResult[R] {
	err := context.Cause(ctx)
	if err == nil {
		err = context.Canceled
	}
	return &ItemResult[R]{Index: idx, Error: err, Status: ItemStatusCancelled}
}

func classifyError(err error) ItemStatus {
	switch {
	case stdliberrors.Is(err, context.DeadlineExceeded):
		return ItemStatusTimeout
	case stdliberrors.Is(err, context.Canceled):
		return ItemStatusCancelled
	}
	return ItemStatusFailed
}

func buildBatchResult[R any](results []*ItemResult[R], total time.Duration) *BatchResult[R] {
	br := &BatchResult[R]{
		Results:       results,
		TotalCount:    len(results),
		TotalDuration: total,
	}
	for _, r := range results {
		if r.Status == ItemStatusSuccess {
			br.SuccessCount++
		} else {
			br.FailureCount++
		}
	}
	return br
}
