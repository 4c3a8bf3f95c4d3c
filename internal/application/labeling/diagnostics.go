package labeling

import (
	"sort"
	"time"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
)

// TypeDiagnostics summarizes one citation type over a run.
type TypeDiagnostics struct {
	Mentions MentionStats `json:"mentions"`
	// ExcludedDocuments counts documents without a single parsed citation
	// of this type.
	ExcludedDocuments int `json:"excluded_documents"`
	// UncappedVocabularySize is the vocabulary size before the cap.
	UncappedVocabularySize int `json:"uncapped_vocabulary_size"`
	VocabularySize         int `json:"vocabulary_size"`
	// CorpusFrequency is the number of mentions per key over the retained
	// documents.
	CorpusFrequency map[citation.Key]int `json:"corpus_frequency"`
}

// Diagnostics is the run summary written next to the dataset.
type Diagnostics struct {
	RunID             string                             `json:"run_id"`
	StartedAt         time.Time                          `json:"started_at"`
	FinishedAt        time.Time                          `json:"finished_at"`
	DocumentsIn       int                                `json:"documents_in"`
	DocumentsRetained int                                `json:"documents_retained"`
	Types             map[citation.Type]*TypeDiagnostics `json:"types"`
}

// NewDiagnostics returns empty diagnostics for both citation types.
func NewDiagnostics(runID string) *Diagnostics {
	d := &Diagnostics{
		RunID: runID,
		Types: make(map[citation.Type]*TypeDiagnostics, 2),
	}
	for _, t := range citation.Types() {
		d.Types[t] = &TypeDiagnostics{CorpusFrequency: map[citation.Key]int{}}
	}
	return d
}

// Type returns the diagnostics of t.
func (d *Diagnostics) Type(t citation.Type) *TypeDiagnostics { return d.Types[t] }

// KeyFrequency is one row of a citation frequency table.
type KeyFrequency struct {
	Key       citation.Key
	Frequency int
}

// Frequencies lists the corpus frequency of every key of type t, most
// frequent first, ties in citation order.
func (d *Diagnostics) Frequencies(t citation.Type) []KeyFrequency {
	td := d.Types[t]
	if td == nil {
		return nil
	}
	out := make([]KeyFrequency, 0, len(td.CorpusFrequency))
	for k, n := range td.CorpusFrequency {
		out = append(out, KeyFrequency{Key: k, Frequency: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Key.Compare(out[j].Key) < 0
	})
	return out
}

// Log writes the summary at info level.
func (d *Diagnostics) Log(logger logging.Logger) {
	logger = logging.OrNop(logger)
	logger.Info("run summary",
		logging.String("run_id", d.RunID),
		logging.Int("documents_in", d.DocumentsIn),
		logging.Int("documents_retained", d.DocumentsRetained),
		logging.Duration("elapsed", d.FinishedAt.Sub(d.StartedAt)),
	)
	for _, t := range citation.Types() {
		td := d.Types[t]
		logger.Info("citation summary",
			logging.String("type", t.String()),
			logging.Int("parsed", td.Mentions.Parsed),
			logging.Int("malformed", td.Mentions.Malformed),
			logging.Int("unknown_abbreviation", td.Mentions.UnknownAbbreviation),
			logging.Int("excluded_documents", td.ExcludedDocuments),
			logging.Int("vocabulary_size", td.VocabularySize),
			logging.Int("uncapped_vocabulary_size", td.UncappedVocabularySize),
		)
	}
}
