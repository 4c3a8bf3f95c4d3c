package prometheus

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

// Subsystem groups every pipeline metric under <namespace>_pipeline_.
const Subsystem = "pipeline"

// Mention outcomes.
const (
	OutcomeParsed              = "parsed"
	OutcomeMalformed           = "malformed"
	OutcomeUnknownAbbreviation = "unknown_abbreviation"
)

// Default buckets
var (
	DefaultPhaseBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300, 900}
	DefaultScoreBuckets = []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1}
)

// PipelineMetrics implements labeling.MetricsRecorder.
type PipelineMetrics struct {
	collector MetricsCollector

	MentionsTotal  CounterVec
	DocumentsTotal CounterVec
	VocabularySize GaugeVec
	PhaseDuration  HistogramVec
	RelevanceScore HistogramVec
}

var _ labeling.MetricsRecorder = (*PipelineMetrics)(nil)

// NewPipelineMetrics registers the pipeline metrics on collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	return &PipelineMetrics{
		collector:      collector,
		MentionsTotal:  collector.RegisterCounter("mentions_total", "Citation mentions by outcome", "type", "outcome"),
		DocumentsTotal: collector.RegisterCounter("documents_total", "Decisions retained or excluded", "status"),
		VocabularySize: collector.RegisterGauge("vocabulary_size", "Citations in the label vocabulary", "type"),
		PhaseDuration:  collector.RegisterHistogram("phase_duration_seconds", "Duration of pipeline phases", DefaultPhaseBuckets, "phase"),
		RelevanceScore: collector.RegisterHistogram("relevance_score", "Non-zero relevance scores", DefaultScoreBuckets, "type"),
	}
}

// RecordMentions implements labeling.MetricsRecorder.
func (m *PipelineMetrics) RecordMentions(t citation.Type, stats labeling.MentionStats) {
	m.MentionsTotal.WithLabelValues(string(t), OutcomeParsed).Add(float64(stats.Parsed))
	m.MentionsTotal.WithLabelValues(string(t), OutcomeMalformed).Add(float64(stats.Malformed))
	m.MentionsTotal.WithLabelValues(string(t), OutcomeUnknownAbbreviation).Add(float64(stats.UnknownAbbreviation))
}

// RecordDocuments implements labeling.MetricsRecorder.
func (m *PipelineMetrics) RecordDocuments(status string, n int) {
	m.DocumentsTotal.WithLabelValues(status).Add(float64(n))
}

// SetVocabularySize implements labeling.MetricsRecorder.
func (m *PipelineMetrics) SetVocabularySize(t citation.Type, n int) {
	m.VocabularySize.WithLabelValues(string(t)).Set(float64(n))
}

// ObservePhase implements labeling.MetricsRecorder.
func (m *PipelineMetrics) ObservePhase(phase string, d time.Duration) {
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// ObserveScores implements labeling.MetricsRecorder.
func (m *PipelineMetrics) ObserveScores(t citation.Type, scores []map[citation.Key]float64) {
	h := m.RelevanceScore.WithLabelValues(string(t))
	for _, row := range scores {
		for _, s := range row {
			h.Observe(s)
		}
	}
}

// Push sends the collector's registry to the Pushgateway at url, replacing
// the metrics previously pushed for job. The run id becomes a grouping label.
func Push(ctx context.Context, collector MetricsCollector, url, job, runID string, log logging.Logger) error {
	if url == "" {
		return errors.New(errors.ErrCodeValidation, "pushgateway url is required")
	}
	if job == "" {
		job = "lexcite_build"
	}
	pusher := push.New(url, job).Gatherer(collector.Gatherer())
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to push metrics").WithDetail(url)
	}
	logging.OrNop(log).Info("metrics pushed", logging.String("url", url), logging.String("job", job))
	return nil
}
