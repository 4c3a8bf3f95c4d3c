// Package labeling turns a corpus of decisions into labeled retrieval
// queries: citation mentions are canonicalized and counted per decision,
// collected into per-type vocabularies, scored with smoothed TF-IDF and
// masked out of the decision text.
package labeling

import (
	"context"
	"time"

	"github.com/turtacn/LexCite/internal/common"
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

// Options tunes a Pipeline.
type Options struct {
	// Workers bounds the per-document worker pool.
	Workers int
	// VocabularyCaps keeps only the N most frequent keys of a type. Zero or
	// absent means uncapped.
	VocabularyCaps map[citation.Type]int
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID        string
	Queries      []*Query
	Vocabularies map[citation.Type]*Vocabulary
	Diagnostics  *Diagnostics
}

// Pipeline runs the three labeling phases over an in-memory corpus.
type Pipeline struct {
	collector *Collector
	masker    *Masker
	scorer    *Scorer
	opts      Options
	logger    logging.Logger
	metrics   MetricsRecorder
}

// NewPipeline wires a pipeline. logger and metrics may be nil.
func NewPipeline(parser *citation.Parser, masker *Masker, opts Options, logger logging.Logger, metrics MetricsRecorder) *Pipeline {
	logger = logging.OrNop(logger).Named("pipeline")
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	return &Pipeline{
		collector: NewCollector(parser, logger),
		masker:    masker,
		scorer:    NewScorer(opts.Workers, logger),
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// canonicalized is the phase-one output for one decision.
type canonicalized struct {
	counts map[citation.Type]map[citation.Key]int
	stats  map[citation.Type]MentionStats
	masked map[string]string
}

// Run labels docs. The returned queries follow the input order of the
// retained decisions. An ambiguous abbreviation aborts the run.
func (p *Pipeline) Run(ctx context.Context, runID string, docs []*decision.Decision) (*Result, error) {
	diag := NewDiagnostics(runID)
	diag.StartedAt = time.Now().UTC()
	diag.DocumentsIn = len(docs)

	// Phase 1: canonicalize and mask each decision.
	start := time.Now()
	processor := common.NewBatchProcessor[*decision.Decision, *canonicalized](
		common.WithName("canonicalize"),
		common.WithMaxConcurrency(p.opts.Workers),
		common.WithStopOn(func(err error) bool { return errors.Is(err, citation.ErrAmbiguousAbbreviation) }),
		common.WithBatchLogger(p.logger),
	)
	batch, err := processor.Process(ctx, docs, func(_ context.Context, _ int, doc *decision.Decision) (*canonicalized, error) {
		return p.canonicalize(doc)
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "canonicalize citations")
	}
	if err := batch.FirstError(); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "canonicalize citations")
	}
	p.metrics.ObservePhase(PhaseCanonical, time.Since(start))

	// Filter: a query needs at least one law and one ruling citation.
	var (
		retained []int
		canon    = batch.Values()
	)
	for i, c := range canon {
		keep := true
		for _, t := range citation.Types() {
			diag.Types[t].Mentions = diag.Types[t].Mentions.Add(c.stats[t])
			if len(c.counts[t]) == 0 {
				diag.Types[t].ExcludedDocuments++
				keep = false
			}
		}
		if keep {
			retained = append(retained, i)
		}
	}
	diag.DocumentsRetained = len(retained)
	for _, t := range citation.Types() {
		p.metrics.RecordMentions(t, diag.Types[t].Mentions)
	}
	p.metrics.RecordDocuments(DocumentRetained, len(retained))
	p.metrics.RecordDocuments(DocumentExcluded, len(docs)-len(retained))

	queries := make([]*Query, len(retained))
	for qi, di := range retained {
		queries[qi] = &Query{
			DecisionID: docs[di].ID,
			Language:   docs[di].NormalizedLanguage(),
			Fields:     canon[di].masked,
			Relevance:  make(map[citation.Type]map[citation.Key]float64, 2),
			Counts:     canon[di].counts,
		}
	}

	// Phase 2 and 3 per type: vocabulary, then matrix and scores.
	vocabs := make(map[citation.Type]*Vocabulary, 2)
	for _, t := range citation.Types() {
		countMaps := make([]map[citation.Key]int, len(retained))
		for qi, di := range retained {
			countMaps[qi] = canon[di].counts[t]
		}

		start = time.Now()
		td := diag.Types[t]
		td.CorpusFrequency = CorpusFrequencies(countMaps)
		td.UncappedVocabularySize = len(td.CorpusFrequency)
		vocab := BuildVocabulary(t, countMaps, p.opts.VocabularyCaps[t])
		td.VocabularySize = vocab.Len()
		vocabs[t] = vocab
		p.metrics.SetVocabularySize(t, vocab.Len())
		p.metrics.ObservePhase(PhaseVocab, time.Since(start))
		if vocab.Len() < td.UncappedVocabularySize {
			p.logger.Info("vocabulary capped",
				logging.String("type", t.String()),
				logging.Int("kept", vocab.Len()),
				logging.Int("total", td.UncappedVocabularySize),
			)
		}

		start = time.Now()
		matrix := BuildFrequencyMatrix(countMaps, vocab)
		scores, err := p.scorer.Score(ctx, matrix)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeInternal, "score %s", t)
		}
		for qi := range queries {
			queries[qi].Relevance[t] = scores[qi]
		}
		p.metrics.ObserveScores(t, scores)
		p.metrics.ObservePhase(PhaseScore, time.Since(start))
	}

	diag.FinishedAt = time.Now().UTC()
	return &Result{
		RunID:        runID,
		Queries:      queries,
		Vocabularies: vocabs,
		Diagnostics:  diag,
	}, nil
}

func (p *Pipeline) canonicalize(doc *decision.Decision) (*canonicalized, error) {
	c := &canonicalized{
		counts: make(map[citation.Type]map[citation.Key]int, 2),
		stats:  make(map[citation.Type]MentionStats, 2),
	}
	for _, t := range citation.Types() {
		counts, stats, err := p.collector.Collect(doc, t)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeUnknown, "decision %s", doc.ID)
		}
		c.counts[t] = counts
		c.stats[t] = stats
	}
	c.masked = p.masker.Mask(doc)
	return c, nil
}
