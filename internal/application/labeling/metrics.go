package labeling

import (
	"time"

	"github.com/turtacn/LexCite/internal/domain/citation"
)

// Pipeline phases.
const (
	PhaseLoad      = "load"
	PhaseCanonical = "canonicalize"
	PhaseVocab     = "vocabulary"
	PhaseScore     = "score"
	PhaseExport    = "export"
)

// Document outcomes.
const (
	DocumentRetained = "retained"
	DocumentExcluded = "excluded"
)

// MetricsRecorder receives run metrics. The Prometheus adapter implements it.
type MetricsRecorder interface {
	RecordMentions(t citation.Type, stats MentionStats)
	RecordDocuments(status string, n int)
	SetVocabularySize(t citation.Type, n int)
	ObservePhase(phase string, d time.Duration)
	ObserveScores(t citation.Type, scores []map[citation.Key]float64)
}

type noopMetrics struct{}

func (noopMetrics) RecordMentions(citation.Type, MentionStats)              {}
func (noopMetrics) RecordDocuments(string, int)                             {}
func (noopMetrics) SetVocabularySize(citation.Type, int)                    {}
func (noopMetrics) ObservePhase(string, time.Duration)                      {}
func (noopMetrics) ObserveScores(citation.Type, []map[citation.Key]float64) {}

// NewNoopMetrics returns a recorder that drops everything.
func NewNoopMetrics() MetricsRecorder { return noopMetrics{} }
