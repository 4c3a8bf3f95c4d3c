package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/config"
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/prometheus"
)

type buildOptions struct {
	workers           int
	rulingCap         int
	source            string
	outDir            string
	dryRun            bool
	failFastAmbiguity bool
	metricsAddr       string
}

// NewBuildCmd returns the build command.
func NewBuildCmd() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the labeled retrieval dataset",
		Long: "Load the decisions and the abbreviation table, canonicalize and score every\n" +
			"citation, and export the dataset to the local output directory and every\n" +
			"enabled sink (MinIO, Kafka, Neo4j, OpenSearch).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := applyBuildFlags(cmd, cliCtx.Config, opts)
			if err != nil {
				return err
			}
			summary, err := runBuild(cmd.Context(), cfg, cliCtx.Logger, opts)
			if err != nil {
				return err
			}
			return PrintResult(cmd, summary)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.workers, "workers", 0, "worker pool size (default: pipeline.workers)")
	f.IntVar(&opts.rulingCap, "ruling-cap", 0, "ruling vocabulary cap, 0 or negative disables it (default: pipeline.ruling_vocabulary_cap)")
	f.StringVar(&opts.source, "source", "", "input source: file or postgres (default: input.source)")
	f.StringVar(&opts.outDir, "out-dir", "", "dataset output directory (default: output.dir)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "run the pipeline without exporting")
	f.BoolVar(&opts.failFastAmbiguity, "fail-fast-ambiguity", true, "refuse to start when the abbreviation table is ambiguous")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics on this address while the build runs (default: metrics.listen_addr)")
	return cmd
}

// applyBuildFlags returns a copy of base with the explicitly set flags
// applied and validates it again.
func applyBuildFlags(cmd *cobra.Command, base *config.Config, opts *buildOptions) (*config.Config, error) {
	cfg := *base
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Pipeline.Workers = opts.workers
	}
	if f.Changed("ruling-cap") {
		cfg.Pipeline.RulingVocabularyCap = opts.rulingCap
		if opts.rulingCap == 0 {
			cfg.Pipeline.RulingVocabularyCap = -1
		}
	}
	if f.Changed("source") {
		cfg.Input.Source = strings.ToLower(opts.source)
	}
	if f.Changed("out-dir") {
		cfg.Output.Dir = opts.outDir
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.ListenAddr = opts.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runBuild(ctx context.Context, cfg *config.Config, logger logging.Logger, opts *buildOptions) (*BuildSummary, error) {
	deps, err := openSources(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer deps.Close()

	if !opts.dryRun {
		if err := deps.openSinks(cfg); err != nil {
			return nil, err
		}
	}

	scrape := cfg.Metrics.ListenAddr != ""
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		Subsystem:            prometheus.Subsystem,
		EnableProcessMetrics: scrape,
		EnableGoMetrics:      scrape,
	}, logger)
	if err != nil {
		return nil, err
	}
	var metricsAddr string
	if scrape {
		srv, err := startMetricsServer(cfg.Metrics.ListenAddr, collector.Handler(), logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				logger.Warn("metrics server did not stop cleanly", logging.Err(err))
			}
		}()
		metricsAddr = srv.Addr()
	}

	svcOpts := []labeling.ServiceOption{
		labeling.WithSinks(deps.sinks...),
		labeling.WithMetrics(prometheus.NewPipelineMetrics(collector)),
	}
	if deps.rulings != nil {
		svcOpts = append(svcOpts, labeling.WithRulingSource(deps.rulings))
	}
	svc := labeling.NewService(serviceConfig(cfg, opts.failFastAmbiguity, opts.dryRun),
		deps.decisions, deps.abbreviations, logger, svcOpts...)

	result, err := svc.Build(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.PushgatewayURL != "" {
		if err := prometheus.Push(ctx, collector, cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName, result.RunID, logger); err != nil {
			logger.Warn("metrics push failed", logging.Err(err))
		}
	}

	sinks := make([]string, 0, len(deps.sinks))
	if !opts.dryRun {
		for _, s := range deps.sinks {
			sinks = append(sinks, s.Name())
		}
	}
	summary := newBuildSummary(result, cfg.Output.Dir, sinks, opts.dryRun)
	summary.MetricsAddr = metricsAddr
	return summary, nil
}

// BuildSummary is the printed outcome of a build.
type BuildSummary struct {
	RunID             string            `json:"run_id"`
	DocumentsIn       int               `json:"documents_in"`
	DocumentsRetained int               `json:"documents_retained"`
	Queries           int               `json:"queries"`
	OutputDir         string            `json:"output_dir,omitempty"`
	Sinks             []string          `json:"sinks"`
	DryRun            bool              `json:"dry_run"`
	MetricsAddr       string            `json:"metrics_addr,omitempty"`
	Types             []TypeSummaryLine `json:"types"`
}

// TypeSummaryLine summarizes one citation type.
type TypeSummaryLine struct {
	Type                string `json:"type"`
	Parsed              int    `json:"parsed"`
	Malformed           int    `json:"malformed"`
	UnknownAbbreviation int    `json:"unknown_abbreviation"`
	ExcludedDocuments   int    `json:"excluded_documents"`
	VocabularySize      int    `json:"vocabulary_size"`
}

func newBuildSummary(res *labeling.Result, dir string, sinks []string, dryRun bool) *BuildSummary {
	s := &BuildSummary{
		RunID:   res.RunID,
		Queries: len(res.Queries),
		Sinks:   sinks,
		DryRun:  dryRun,
	}
	if !dryRun {
		s.OutputDir = dir
	}
	if d := res.Diagnostics; d != nil {
		s.DocumentsIn = d.DocumentsIn
		s.DocumentsRetained = d.DocumentsRetained
		for _, t := range citation.Types() {
			td := d.Type(t)
			if td == nil {
				continue
			}
			s.Types = append(s.Types, TypeSummaryLine{
				Type:                string(t),
				Parsed:              td.Mentions.Parsed,
				Malformed:           td.Mentions.Malformed,
				UnknownAbbreviation: td.Mentions.UnknownAbbreviation,
				ExcludedDocuments:   td.ExcludedDocuments,
				VocabularySize:      td.VocabularySize,
			})
		}
	}
	return s
}

func (s *BuildSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s: %d of %d decisions retained, %d queries", s.RunID, s.DocumentsRetained, s.DocumentsIn, s.Queries)
	if s.DryRun {
		sb.WriteString(" (dry run)")
	} else {
		fmt.Fprintf(&sb, " exported to %s", strings.Join(s.Sinks, ", "))
	}
	for _, t := range s.Types {
		fmt.Fprintf(&sb, "\n  %s: %d parsed, %d malformed, %d unknown abbreviation, vocabulary %d",
			t.Type, t.Parsed, t.Malformed, t.UnknownAbbreviation, t.VocabularySize)
	}
	return sb.String()
}

// TableHeaders implements the table output.
func (s *BuildSummary) TableHeaders() []string {
	return []string{"TYPE", "PARSED", "MALFORMED", "UNKNOWN", "EXCLUDED DOCS", "VOCABULARY"}
}

// TableRows implements the table output.
func (s *BuildSummary) TableRows() [][]string {
	rows := make([][]string, 0, len(s.Types))
	for _, t := range s.Types {
		rows = append(rows, []string{
			t.Type,
			strconv.Itoa(t.Parsed),
			strconv.Itoa(t.Malformed),
			strconv.Itoa(t.UnknownAbbreviation),
			strconv.Itoa(t.ExcludedDocuments),
			strconv.Itoa(t.VocabularySize),
		})
	}
	return rows
}
