package labeling

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
	apperrors "github.com/turtacn/LexCite/pkg/errors"
)

type stubDecisions struct {
	docs []*decision.Decision
	err  error
}

func (s stubDecisions) Decisions(context.Context) ([]*decision.Decision, error) { return s.docs, s.err }

type stubAbbreviations struct {
	rows []citation.AbbreviationRow
	err  error
}

func (s stubAbbreviations) AbbreviationRows(context.Context) ([]citation.AbbreviationRow, error) {
	return s.rows, s.err
}

type stubRulings []citation.Key

func (s stubRulings) Rulings(context.Context) ([]citation.Key, error) { return s, nil }

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Export(ctx context.Context, result *Result) error {
	return m.Called(ctx, result).Error(0)
}

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		Pipeline:        Options{Workers: 2, VocabularyCaps: map[citation.Type]int{citation.TypeRuling: 1000}},
		MaskFields:      []string{decision.FieldFacts, decision.FieldConsiderations},
		LawMaskToken:    "<ref-law>",
		RulingMaskToken: "<ref-ruling>",
		Cantons:         []string{"ch"},
		FailOnAmbiguity: true,
	}
}

func TestService_Build(t *testing.T) {
	sink := new(mockSink)
	sink.On("Export", mock.Anything, mock.MatchedBy(func(r *Result) bool {
		return r.RunID == "fixed" && len(r.Queries) == 2
	})).Return(nil).Once()

	svc := NewService(testServiceConfig(),
		stubDecisions{docs: testCorpus()},
		stubAbbreviations{rows: testRows()},
		nil,
		WithSinks(sink),
		WithRunIDGenerator(func() string { return "fixed" }),
	)

	res, err := svc.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.RunID)
	sink.AssertExpectations(t)
}

func TestService_DryRunSkipsSinks(t *testing.T) {
	sink := new(mockSink)
	cfg := testServiceConfig()
	cfg.DryRun = true

	svc := NewService(cfg, stubDecisions{docs: testCorpus()}, stubAbbreviations{rows: testRows()}, nil, WithSinks(sink))
	_, err := svc.Build(context.Background())
	require.NoError(t, err)
	sink.AssertNotCalled(t, "Export", mock.Anything, mock.Anything)
}

func TestService_SinkFailure(t *testing.T) {
	sink := new(mockSink)
	sink.On("Export", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := NewService(testServiceConfig(), stubDecisions{docs: testCorpus()}, stubAbbreviations{rows: testRows()}, nil, WithSinks(sink))
	_, err := svc.Build(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatasetExportFailed))
}

func TestService_AmbiguousTable(t *testing.T) {
	rows := append(testRows(), citation.AbbreviationRow{SRNumber: "999", Abbreviation: "ZGB", Language: "de", Canton: "ch"})

	svc := NewService(testServiceConfig(), stubDecisions{docs: testCorpus()}, stubAbbreviations{rows: rows}, nil)
	_, err := svc.Build(context.Background())
	assert.ErrorIs(t, err, citation.ErrAmbiguousAbbreviation)

	// Without fail-fast only decisions citing the ambiguous abbreviation
	// abort the run, and d3 cites ZGB.
	cfg := testServiceConfig()
	cfg.FailOnAmbiguity = false
	svc = NewService(cfg, stubDecisions{docs: testCorpus()}, stubAbbreviations{rows: rows}, nil)
	_, err = svc.Build(context.Background())
	assert.ErrorIs(t, err, citation.ErrAmbiguousAbbreviation)

	svc = NewService(cfg, stubDecisions{docs: testCorpus()[:2]}, stubAbbreviations{rows: rows}, nil)
	_, err = svc.Build(context.Background())
	assert.NoError(t, err)
}

func TestService_RulingIndex(t *testing.T) {
	svc := NewService(testServiceConfig(),
		stubDecisions{docs: testCorpus()},
		stubAbbreviations{rows: testRows()},
		nil,
		WithRulingSource(stubRulings{citation.RulingKey(121, "III", 38)}),
	)

	res, err := svc.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Vocabularies[citation.TypeRuling].Len())
	// BGE 130 II 1 and ATF 99 Ia 5 are outside the index.
	assert.Equal(t, 2, res.Diagnostics.Type(citation.TypeRuling).Mentions.UnknownAbbreviation)
}

func TestService_LoadFailures(t *testing.T) {
	svc := NewService(testServiceConfig(), stubDecisions{}, stubAbbreviations{err: errors.New("boom")}, nil)
	_, err := svc.Build(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatasetLoadFailed))

	svc = NewService(testServiceConfig(), stubDecisions{err: errors.New("boom")}, stubAbbreviations{rows: testRows()}, nil)
	_, err = svc.Build(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatasetLoadFailed))

	svc = NewService(testServiceConfig(), stubDecisions{}, stubAbbreviations{rows: testRows()}, nil)
	_, err = svc.Build(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatasetEmpty))
}
