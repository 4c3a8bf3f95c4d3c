package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	opensearchgo "github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/common"
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

var (
	ErrIndexCreationFailed = errors.New(errors.ErrCodeStorageError, "index creation failed")
	// ErrBulkRequestFailed covers transport failures and 5xx answers of a
	// bulk request. Only these are retried.
	ErrBulkRequestFailed = errors.New(errors.ErrCodeExternalService, "bulk request failed")
	// ErrDocumentsRejected reports documents the cluster refused to index.
	ErrDocumentsRejected = errors.New(errors.ErrCodeBadRequest, "documents rejected by index")
)

const (
	defaultBulkBatchSize = 500
	defaultBulkWorkers   = 2
	defaultBulkBackoff   = 250 * time.Millisecond
	defaultBulkTimeout   = 30 * time.Second
	defaultRefreshPolicy = "false"
	// fieldSeparator joins the masked sections into the searchable text.
	fieldSeparator = "\n\n"
)

// IndexerConfig holds configuration for the QueryIndexer.
type IndexerConfig struct {
	Index         string
	BulkBatchSize int
	BulkWorkers   int
	BulkRetries   int
	BulkBackoff   time.Duration
	// BulkTimeout bounds one bulk request attempt.
	BulkTimeout   time.Duration
	RefreshPolicy string
}

// BulkItemError describes one refused document.
type BulkItemError struct {
	DocID  string
	Type   string
	Reason string
}

// BulkResult aggregates the outcome of one bulk request.
type BulkResult struct {
	Indexed int
	Failed  int
	Errors  []BulkItemError
}

// QueryIndexer is the labeling.Sink that bulk-indexes every query with its
// masked text and relevance lists.
type QueryIndexer struct {
	client    *Client
	config    IndexerConfig
	processor common.BatchProcessor[[]QueryDocument, *BulkResult]
	logger    logging.Logger
}

var _ labeling.Sink = (*QueryIndexer)(nil)

// NewQueryIndexer creates a new QueryIndexer.
func NewQueryIndexer(client *Client, cfg IndexerConfig, log logging.Logger) *QueryIndexer {
	if cfg.BulkBatchSize <= 0 {
		cfg.BulkBatchSize = defaultBulkBatchSize
	}
	if cfg.BulkWorkers <= 0 {
		cfg.BulkWorkers = defaultBulkWorkers
	}
	if cfg.BulkRetries < 0 {
		cfg.BulkRetries = 0
	}
	if cfg.BulkBackoff <= 0 {
		cfg.BulkBackoff = defaultBulkBackoff
	}
	if cfg.BulkTimeout <= 0 {
		cfg.BulkTimeout = defaultBulkTimeout
	}
	if cfg.RefreshPolicy == "" {
		cfg.RefreshPolicy = defaultRefreshPolicy
	}

	log = logging.OrNop(log).Named("opensearch")
	return &QueryIndexer{
		client: client,
		config: cfg,
		processor: common.NewBatchProcessor[[]QueryDocument, *BulkResult](
			common.WithName("bulk-index"),
			common.WithMaxConcurrency(cfg.BulkWorkers),
			common.WithItemTimeout(cfg.BulkTimeout),
			common.WithRetryPolicyFull(&common.RetryPolicy{
				MaxRetries:        cfg.BulkRetries,
				InitialBackoff:    cfg.BulkBackoff,
				MaxBackoff:        cfg.BulkBackoff * 8,
				BackoffMultiplier: 2.0,
				RetryableErrors:   []error{ErrBulkRequestFailed, context.DeadlineExceeded},
			}),
			common.WithBatchLogger(log),
		),
		logger: log,
	}
}

// Name implements labeling.Sink.
func (i *QueryIndexer) Name() string { return "opensearch" }

// Close stops accepting exports and waits for a running one to finish or
// for ctx to expire.
func (i *QueryIndexer) Close(ctx context.Context) error {
	return i.processor.Shutdown(ctx)
}

// EnsureIndex creates the query index with QueryIndexMapping when it does
// not exist yet. An existing index is left untouched.
func (i *QueryIndexer) EnsureIndex(ctx context.Context) error {
	exists, err := i.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body, err := json.Marshal(QueryIndexMapping())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}
	resp, err := i.client.do(ctx, opensearchapi.IndicesCreateReq{
		Index: i.config.Index,
		Body:  bytes.NewReader(body),
	})
	if err != nil {
		return ErrIndexCreationFailed.WithCause(err)
	}
	defer closeBody(resp)

	if resp.IsError() {
		return handleErrorResponse(resp, ErrIndexCreationFailed)
	}
	i.logger.Info("Index created", logging.String("index", i.config.Index))
	return nil
}

func (i *QueryIndexer) indexExists(ctx context.Context) (bool, error) {
	resp, err := i.client.do(ctx, opensearchapi.IndicesExistsReq{Indices: []string{i.config.Index}})
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "failed to check index existence")
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, handleErrorResponse(resp, errors.New(errors.ErrCodeExternalService, "check index existence failed"))
}

// Export implements labeling.Sink. Documents are sent in chunks of
// BulkBatchSize; every chunk is attempted and the first failure returned.
func (i *QueryIndexer) Export(ctx context.Context, res *labeling.Result) error {
	if res == nil {
		return errors.New(errors.ErrCodeBadRequest, "nil result")
	}
	if err := i.EnsureIndex(ctx); err != nil {
		return err
	}

	docs := BuildDocuments(res)
	chunks := make([][]QueryDocument, 0, len(docs)/i.config.BulkBatchSize+1)
	for start := 0; start < len(docs); start += i.config.BulkBatchSize {
		chunks = append(chunks, docs[start:min(start+i.config.BulkBatchSize, len(docs))])
	}

	batch, err := i.processor.Process(ctx, chunks, func(ctx context.Context, _ int, chunk []QueryDocument) (*BulkResult, error) {
		return i.bulk(ctx, chunk)
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "bulk indexing aborted")
	}

	indexed := 0
	for _, r := range batch.Results {
		if r.Result != nil {
			indexed += r.Result.Indexed
		}
	}
	if err := batch.FirstError(); err != nil {
		return errors.Wrapf(err, errors.CodeUnknown, "%d of %d bulk requests failed (%d timed out), %d documents indexed",
			batch.FailureCount, batch.TotalCount, batch.Count(common.ItemStatusTimeout), indexed)
	}

	i.logger.Info("queries indexed",
		logging.String("index", i.config.Index),
		logging.String("run_id", res.RunID),
		logging.Int("documents", indexed),
		logging.Int("requests", batch.TotalCount),
	)
	return nil
}

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkResponse struct {
	Errors bool                  `json:"errors"`
	Items  []map[string]bulkItem `json:"items"`
}

type bulkItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

func (i *QueryIndexer) bulk(ctx context.Context, docs []QueryDocument) (*BulkResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, doc := range docs {
		if err := enc.Encode(bulkAction{Index: bulkMeta{Index: i.config.Index, ID: doc.DecisionID}}); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk action")
		}
		if err := enc.Encode(doc); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeSerialization, "failed to encode document %s", doc.DecisionID)
		}
	}

	resp, err := i.client.do(ctx, opensearchapi.BulkReq{
		Index:  i.config.Index,
		Body:   bytes.NewReader(buf.Bytes()),
		Params: opensearchapi.BulkParams{Refresh: i.config.RefreshPolicy},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, ErrBulkRequestFailed.WithCause(err)
	}
	defer closeBody(resp)

	if resp.IsError() {
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, handleErrorResponse(resp, ErrBulkRequestFailed)
		}
		return nil, handleErrorResponse(resp, ErrDocumentsRejected)
	}

	var br bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode bulk response")
	}

	result := &BulkResult{}
	for _, item := range br.Items {
		for _, info := range item {
			if info.Status >= 200 && info.Status < 300 {
				result.Indexed++
				continue
			}
			result.Failed++
			e := BulkItemError{DocID: info.ID}
			if info.Error != nil {
				e.Type, e.Reason = info.Error.Type, info.Error.Reason
			}
			result.Errors = append(result.Errors, e)
		}
	}
	if result.Failed > 0 {
		first := result.Errors[0]
		return result, ErrDocumentsRejected.WithDetailf("%d of %d documents rejected, first %s: %s %s",
			result.Failed, len(docs), first.DocID, first.Type, first.Reason)
	}
	return result, nil
}

func handleErrorResponse(resp *opensearchgo.Response, base *errors.AppError) error {
	var errResp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Reason != "" {
		return base.WithDetailf("status %d: %s - %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Reason)
	}
	return base.WithDetailf("status %d", resp.StatusCode)
}

// ScoredCitation is one entry of a document's relevance list.
type ScoredCitation struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
	Count int     `json:"count"`
}

// QueryDocument is the indexed form of a labeling.Query. Text holds the
// masked sections joined in field-name order and is the BM25 search field.
type QueryDocument struct {
	DecisionID string            `json:"decision_id"`
	RunID      string            `json:"run_id"`
	Language   string            `json:"language"`
	Text       string            `json:"text"`
	Fields     map[string]string `json:"fields"`
	Laws       []ScoredCitation  `json:"laws"`
	Rulings    []ScoredCitation  `json:"rulings"`
}

// BuildDocuments converts the queries of res in order.
func BuildDocuments(res *labeling.Result) []QueryDocument {
	docs := make([]QueryDocument, 0, len(res.Queries))
	for _, q := range res.Queries {
		docs = append(docs, QueryDocument{
			DecisionID: q.DecisionID,
			RunID:      res.RunID,
			Language:   q.Language,
			Text:       joinFields(q.Fields),
			Fields:     q.Fields,
			Laws:       scoredCitations(q, citation.TypeLaw),
			Rulings:    scoredCitations(q, citation.TypeRuling),
		})
	}
	return docs
}

func joinFields(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name, text := range fields {
		if strings.TrimSpace(text) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for idx, name := range names {
		parts[idx] = fields[name]
	}
	return strings.Join(parts, fieldSeparator)
}

// scoredCitations lists the relevance map of type t in canonical key order.
func scoredCitations(q *labeling.Query, t citation.Type) []ScoredCitation {
	scores := q.Relevance[t]
	keys := make([]citation.Key, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	citation.SortKeys(keys)

	out := make([]ScoredCitation, len(keys))
	for idx, k := range keys {
		out[idx] = ScoredCitation{Key: k.String(), Score: scores[k], Count: q.Counts[t][k]}
	}
	return out
}

// QueryIndexMapping is the index body: masked sections as BM25 text and the
// relevance lists as nested documents so that key and score stay paired.
func QueryIndexMapping() map[string]interface{} {
	scored := map[string]interface{}{
		"type": "nested",
		"properties": map[string]interface{}{
			"key":   map[string]interface{}{"type": "keyword"},
			"score": map[string]interface{}{"type": "float"},
			"count": map[string]interface{}{"type": "integer"},
		},
	}
	return map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"index": map[string]interface{}{
				"similarity": map[string]interface{}{
					"default": map[string]interface{}{"type": "BM25", "k1": 1.2, "b": 0.75},
				},
			},
		},
		"mappings": map[string]interface{}{
			"dynamic_templates": []interface{}{
				map[string]interface{}{
					"sections_as_text": map[string]interface{}{
						"path_match": "fields.*",
						"mapping":    map[string]interface{}{"type": "text"},
					},
				},
			},
			"properties": map[string]interface{}{
				"decision_id": map[string]interface{}{"type": "keyword"},
				"run_id":      map[string]interface{}{"type": "keyword"},
				"language":    map[string]interface{}{"type": "keyword"},
				"text":        map[string]interface{}{"type": "text"},
				"fields":      map[string]interface{}{"type": "object"},
				"laws":        scored,
				"rulings":     scored,
			},
		},
	}
}
