package labeling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

// Sink receives the result of a successful run. Sinks run in the order
// they are registered; the first failure stops the export.
type Sink interface {
	Name() string
	Export(ctx context.Context, result *Result) error
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Pipeline Options

	MaskFields      []string
	LawMaskToken    string
	RulingMaskToken string

	// Cantons selects the abbreviation rows to use; empty keeps all.
	Cantons []string

	// FailOnAmbiguity refuses to start when the abbreviation table maps a
	// (language, abbreviation) pair to several statutes. When false the
	// ambiguities are logged and only decisions actually citing such an
	// abbreviation abort the run.
	FailOnAmbiguity bool

	// DryRun skips all sinks.
	DryRun bool
}

// Service loads the corpus and reference tables, runs the pipeline and
// hands the result to the sinks.
type Service struct {
	cfg           ServiceConfig
	decisions     decision.Source
	abbreviations citation.AbbreviationSource
	rulings       citation.RulingSource
	sinks         []Sink
	logger        logging.Logger
	metrics       MetricsRecorder
	newRunID      func() string
}

// ServiceOption configures optional collaborators of a Service.
type ServiceOption func(*Service)

// WithRulingSource restricts ruling citations to the rulings it lists.
func WithRulingSource(src citation.RulingSource) ServiceOption {
	return func(s *Service) { s.rulings = src }
}

// WithSinks appends output sinks.
func WithSinks(sinks ...Sink) ServiceOption {
	return func(s *Service) { s.sinks = append(s.sinks, sinks...) }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithRunIDGenerator replaces the random run id.
func WithRunIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newRunID = fn
		}
	}
}

// NewService returns a Service reading decisions and abbreviations from the
// given sources.
func NewService(cfg ServiceConfig, decisions decision.Source, abbreviations citation.AbbreviationSource, logger logging.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:           cfg,
		decisions:     decisions,
		abbreviations: abbreviations,
		logger:        logging.OrNop(logger),
		metrics:       NewNoopMetrics(),
		newRunID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadTable loads the abbreviation rows and builds the lookup table.
func (s *Service) LoadTable(ctx context.Context) (*citation.AbbreviationTable, error) {
	rows, err := s.abbreviations.AbbreviationRows(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetLoadFailed, "load abbreviation table")
	}
	table := citation.NewAbbreviationTable(citation.SelectRows(rows, s.cfg.Cantons))
	s.logger.Info("abbreviation table loaded",
		logging.Int("rows", len(rows)),
		logging.Int("selected", table.Len()),
	)
	return table, nil
}

// Build runs one labeling pass end to end.
func (s *Service) Build(ctx context.Context) (*Result, error) {
	runID := s.newRunID()
	logger := s.logger.With(logging.String("run_id", runID))
	start := time.Now()

	table, err := s.LoadTable(ctx)
	if err != nil {
		return nil, err
	}
	if amb := table.Ambiguities(); len(amb) > 0 {
		if s.cfg.FailOnAmbiguity {
			return nil, citation.ErrAmbiguousAbbreviation.WithDetail(describeAmbiguities(amb))
		}
		logger.Warn("abbreviation table is ambiguous",
			logging.Int("count", len(amb)),
			logging.String("first", describeAmbiguities(amb[:1])),
		)
	}

	parserOpts := []citation.ParserOption{}
	if s.rulings != nil {
		keys, err := s.rulings.Rulings(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatasetLoadFailed, "load ruling index")
		}
		idx := citation.NewRulingIndex(keys)
		parserOpts = append(parserOpts, citation.WithRulingIndex(idx))
		logger.Info("ruling index loaded", logging.Int("rulings", idx.Len()))
	}

	docs, err := s.decisions.Decisions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetLoadFailed, "load decisions")
	}
	if len(docs) == 0 {
		return nil, errors.New(errors.ErrCodeDatasetEmpty, "no decisions to label")
	}
	s.metrics.ObservePhase(PhaseLoad, time.Since(start))
	logger.Info("decisions loaded", logging.Int("decisions", len(docs)))

	pipeline := NewPipeline(
		citation.NewParser(table, parserOpts...),
		NewMasker(s.cfg.MaskFields, s.cfg.LawMaskToken, s.cfg.RulingMaskToken),
		s.cfg.Pipeline,
		logger,
		s.metrics,
	)
	result, err := pipeline.Run(ctx, runID, docs)
	if err != nil {
		return nil, err
	}
	result.Diagnostics.Log(logger)

	if s.cfg.DryRun {
		logger.Info("dry run, skipping export")
		return result, nil
	}
	if err := s.export(ctx, result, logger); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) export(ctx context.Context, result *Result, logger logging.Logger) error {
	start := time.Now()
	for _, sink := range s.sinks {
		sinkStart := time.Now()
		if err := sink.Export(ctx, result); err != nil {
			return errors.Wrapf(err, errors.ErrCodeDatasetExportFailed, "export to %s", sink.Name())
		}
		logger.Info("exported",
			logging.String("sink", sink.Name()),
			logging.Int("queries", len(result.Queries)),
			logging.Duration("duration", time.Since(sinkStart)),
		)
	}
	s.metrics.ObservePhase(PhaseExport, time.Since(start))
	return nil
}

func describeAmbiguities(amb []citation.Ambiguity) string {
	parts := make([]string, 0, len(amb))
	for _, a := range amb {
		parts = append(parts, fmt.Sprintf("%s/%s → SR %s", a.Language, a.Abbreviation, strings.Join(a.SRNumbers, ", ")))
	}
	return strings.Join(parts, "; ")
}
