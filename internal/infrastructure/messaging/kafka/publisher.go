package kafka

import (
	"context"
	"encoding/json"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

// Message headers set on every query record.
const (
	HeaderRunID         = "run-id"
	HeaderSchemaVersion = "schema-version"
	HeaderLanguage      = "language"

	QuerySchemaVersion = "1"
)

// Publisher is the part of Producer a QueryPublisher needs.
type Publisher interface {
	PublishBatch(ctx context.Context, msgs []*Message) (*BatchPublishResult, error)
}

// QueryPublisher is the labeling.Sink that publishes one message per query:
// key = decision id, value = the query JSON.
type QueryPublisher struct {
	producer  Publisher
	topic     string
	batchSize int
	logger    logging.Logger
}

var _ labeling.Sink = (*QueryPublisher)(nil)

// NewQueryPublisher publishes to topic in chunks of batchSize messages.
func NewQueryPublisher(producer Publisher, topic string, batchSize int, logger logging.Logger) *QueryPublisher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &QueryPublisher{
		producer:  producer,
		topic:     topic,
		batchSize: batchSize,
		logger:    logging.OrNop(logger).Named("kafka"),
	}
}

// Name implements labeling.Sink.
func (p *QueryPublisher) Name() string { return "kafka" }

// Export implements labeling.Sink. It stops at the first chunk with a
// failed message.
func (p *QueryPublisher) Export(ctx context.Context, res *labeling.Result) error {
	if res == nil {
		return errors.New(errors.ErrCodeBadRequest, "nil result")
	}

	published := 0
	for start := 0; start < len(res.Queries); start += p.batchSize {
		end := min(start+p.batchSize, len(res.Queries))
		msgs, err := p.messages(res.RunID, res.Queries[start:end])
		if err != nil {
			return err
		}
		out, err := p.producer.PublishBatch(ctx, msgs)
		if err != nil {
			return err
		}
		if out.Failed > 0 {
			first := out.Errors[0]
			id := "batch"
			if first.Index >= 0 {
				id = res.Queries[start+first.Index].DecisionID
			}
			return ErrPublishFailed.WithDetailf("%d of %d messages failed, first %s", out.Failed, len(msgs), id).WithCause(first.Error)
		}
		published += out.Succeeded
	}

	p.logger.Info("queries published",
		logging.String("topic", p.topic),
		logging.String("run_id", res.RunID),
		logging.Int("messages", published),
	)
	return nil
}

func (p *QueryPublisher) messages(runID string, queries []*labeling.Query) ([]*Message, error) {
	msgs := make([]*Message, len(queries))
	for i, q := range queries {
		value, err := json.Marshal(q)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeSerialization, "failed to encode query %s", q.DecisionID)
		}
		msgs[i] = &Message{
			Topic: p.topic,
			Key:   []byte(q.DecisionID),
			Value: value,
			Headers: map[string]string{
				HeaderRunID:         runID,
				HeaderSchemaVersion: QuerySchemaVersion,
				HeaderLanguage:      q.Language,
			},
		}
	}
	return msgs, nil
}
