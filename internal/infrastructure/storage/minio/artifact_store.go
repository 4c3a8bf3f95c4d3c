package minio

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/common"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/internal/infrastructure/storage/local"
	"github.com/turtacn/LexCite/pkg/errors"
)

const (
	defaultUploadConcurrency = 4
	defaultUploadRetries     = 2
	defaultUploadBackoff     = 200 * time.Millisecond
	defaultUploadTimeout     = 2 * time.Minute
)

// ArtifactStore is the labeling.Sink that uploads every dataset file of a
// run under <prefix>/<run-id>/.
type ArtifactStore struct {
	client    *MinIOClient
	prefix    string
	processor common.BatchProcessor[local.Artifact, *UploadResult]
	logger    logging.Logger
}

var _ labeling.Sink = (*ArtifactStore)(nil)

// StoreOption tunes an ArtifactStore.
type StoreOption func(*storeOptions)

type storeOptions struct {
	concurrency int
	retries     int
	backoff     time.Duration
	timeout     time.Duration
}

// WithUploadConcurrency bounds parallel uploads.
func WithUploadConcurrency(n int) StoreOption {
	return func(o *storeOptions) { o.concurrency = n }
}

// WithUploadRetries retries a failed upload up to n times.
func WithUploadRetries(n int, backoff time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.retries = n
		o.backoff = backoff
	}
}

// WithUploadTimeout bounds every upload attempt. A timed-out attempt is
// retried like any other failure.
func WithUploadTimeout(d time.Duration) StoreOption {
	return func(o *storeOptions) { o.timeout = d }
}

// NewArtifactStore returns a store uploading through client.
func NewArtifactStore(client *MinIOClient, prefix string, log logging.Logger, opts ...StoreOption) *ArtifactStore {
	o := storeOptions{
		concurrency: defaultUploadConcurrency,
		retries:     defaultUploadRetries,
		backoff:     defaultUploadBackoff,
		timeout:     defaultUploadTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	log = logging.OrNop(log).Named("minio")
	return &ArtifactStore{
		client: client,
		prefix: strings.Trim(prefix, "/"),
		processor: common.NewBatchProcessor[local.Artifact, *UploadResult](
			common.WithName("artifact-upload"),
			common.WithMaxConcurrency(o.concurrency),
			common.WithItemTimeout(o.timeout),
			common.WithRetryPolicyFull(&common.RetryPolicy{
				MaxRetries:        o.retries,
				InitialBackoff:    o.backoff,
				MaxBackoff:        o.backoff * 16,
				BackoffMultiplier: 2.0,
				RetryableErrors:   []error{context.DeadlineExceeded, ErrUploadFailed},
			}),
			common.WithBatchLogger(log),
		),
		logger: log,
	}
}

// Name implements labeling.Sink.
func (s *ArtifactStore) Name() string { return "minio" }

// Close stops accepting exports and waits for a running one to finish or
// for ctx to expire.
func (s *ArtifactStore) Close(ctx context.Context) error {
	return s.processor.Shutdown(ctx)
}

// ObjectKey returns the object key of a dataset file.
func (s *ArtifactStore) ObjectKey(runID, name string) string {
	return path.Join(s.prefix, runID, name)
}

// Export implements labeling.Sink. All files are attempted; the first
// failure is returned.
func (s *ArtifactStore) Export(ctx context.Context, res *labeling.Result) error {
	artifacts, err := local.Render(res)
	if err != nil {
		return err
	}
	if res.RunID == "" {
		return ErrInvalidRequest.WithDetail("result has no run id")
	}

	batch, err := s.processor.Process(ctx, artifacts, func(ctx context.Context, _ int, a local.Artifact) (*UploadResult, error) {
		return s.client.Upload(ctx, &UploadRequest{
			ObjectKey:   s.ObjectKey(res.RunID, a.Name),
			Data:        a.Data,
			ContentType: a.ContentType,
			Metadata:    map[string]string{"run-id": res.RunID},
		})
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "artifact upload aborted")
	}
	if err := batch.FirstError(); err != nil {
		return errors.Wrapf(err, errors.CodeUnknown, "%d of %d artifacts failed to upload (%d timed out)",
			batch.FailureCount, batch.TotalCount, batch.Count(common.ItemStatusTimeout))
	}

	var size int64
	for _, r := range batch.Values() {
		if r != nil {
			size += r.Size
		}
	}
	s.logger.Info("artifacts uploaded",
		logging.String("bucket", s.client.Bucket()),
		logging.String("prefix", s.ObjectKey(res.RunID, "")),
		logging.Int("files", batch.SuccessCount),
		logging.Int64("bytes", size),
	)
	return nil
}
