package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/domain/decision"
	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

// maxLineSize bounds a single JSON Lines record. Decisions with long
// considerations easily exceed bufio's 64 KiB default.
const maxLineSize = 32 * 1024 * 1024

// readLines calls fn for every non-blank line of path with its 1-based line
// number until fn returns false or an error.
func readLines(ctx context.Context, path string, fn func(lineNo int, line []byte) (bool, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "failed to open %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		more, err := fn(lineNo, line)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "failed to read %s", path)
	}
	return nil
}

func decodeLine(path string, lineNo int, line []byte, v interface{}) error {
	if err := json.Unmarshal(line, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "invalid JSON record").
			WithDetail(fmt.Sprintf("%s:%d", path, lineNo))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Decisions
// ─────────────────────────────────────────────────────────────────────────────

type decisionRecord struct {
	ID             string                        `json:"decision_id"`
	Language       string                        `json:"language"`
	Facts          *string                       `json:"facts"`
	Considerations *string                       `json:"considerations"`
	Sections       map[string]string             `json:"sections"`
	Citations      map[string][]decision.Mention `json:"citations"`
}

// DecisionFile implements decision.Source over a decisions.jsonl file.
type DecisionFile struct {
	path   string
	filter decision.Filter
	logger logging.Logger
}

var _ decision.Source = (*DecisionFile)(nil)

// NewDecisionFile reads decisions from path.
func NewDecisionFile(path string, filter decision.Filter, logger logging.Logger) *DecisionFile {
	return &DecisionFile{path: path, filter: filter, logger: logging.OrNop(logger)}
}

// Decisions reads the file in order, applying the language filter before
// the limit.
func (s *DecisionFile) Decisions(ctx context.Context) ([]*decision.Decision, error) {
	var out []*decision.Decision
	err := readLines(ctx, s.path, func(lineNo int, line []byte) (bool, error) {
		var rec decisionRecord
		if err := decodeLine(s.path, lineNo, line, &rec); err != nil {
			return false, err
		}
		d, err := s.toDecision(&rec)
		if err != nil {
			return false, errors.Wrap(err, errors.CodeUnknown, "invalid decision record").
				WithDetail(fmt.Sprintf("%s:%d", s.path, lineNo))
		}
		if !s.filter.Accepts(d.NormalizedLanguage()) {
			return true, nil
		}
		out = append(out, d)
		return s.filter.Limit <= 0 || len(out) < s.filter.Limit, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("decisions loaded", logging.String("path", s.path), logging.Int("count", len(out)))
	return out, nil
}

func (s *DecisionFile) toDecision(rec *decisionRecord) (*decision.Decision, error) {
	d := &decision.Decision{
		ID:       rec.ID,
		Language: rec.Language,
		Fields:   make(map[string]string, len(rec.Sections)+2),
		Mentions: make(map[citation.Type][]decision.Mention, 2),
	}
	for name, text := range rec.Sections {
		d.Fields[name] = text
	}
	if rec.Facts != nil {
		d.Fields[decision.FieldFacts] = *rec.Facts
	}
	if rec.Considerations != nil {
		d.Fields[decision.FieldConsiderations] = *rec.Considerations
	}
	for name, mentions := range rec.Citations {
		t, err := citation.ParseType(name)
		if err != nil {
			s.logger.Debug("skipping unknown citation list",
				logging.String("decision_id", rec.ID), logging.String("list", name))
			continue
		}
		d.Mentions[t] = append(d.Mentions[t], mentions...)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reference tables
// ─────────────────────────────────────────────────────────────────────────────

// AbbreviationFile implements citation.AbbreviationSource over lexfind.jsonl.
// Rows are returned unfiltered; canton selection happens when the table is
// built.
type AbbreviationFile struct {
	path string
}

var _ citation.AbbreviationSource = (*AbbreviationFile)(nil)

// NewAbbreviationFile reads abbreviation rows from path.
func NewAbbreviationFile(path string) *AbbreviationFile {
	return &AbbreviationFile{path: path}
}

// AbbreviationRows implements citation.AbbreviationSource.
func (s *AbbreviationFile) AbbreviationRows(ctx context.Context) ([]citation.AbbreviationRow, error) {
	var rows []citation.AbbreviationRow
	err := readLines(ctx, s.path, func(lineNo int, line []byte) (bool, error) {
		var row citation.AbbreviationRow
		if err := decodeLine(s.path, lineNo, line, &row); err != nil {
			return false, err
		}
		rows = append(rows, row)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type rulingRecord struct {
	Citation string `json:"citation"`
	Volume   int    `json:"volume"`
	Part     string `json:"part"`
	Page     int    `json:"page"`
}

// RulingFile implements citation.RulingSource over rulings.jsonl. A record
// is either {"citation":"BGE 121 III 38"} or {"volume":121,"part":"III","page":38}.
type RulingFile struct {
	path string
}

var _ citation.RulingSource = (*RulingFile)(nil)

// NewRulingFile reads the ruling reference corpus from path.
func NewRulingFile(path string) *RulingFile {
	return &RulingFile{path: path}
}

// Rulings implements citation.RulingSource.
func (s *RulingFile) Rulings(ctx context.Context) ([]citation.Key, error) {
	var keys []citation.Key
	err := readLines(ctx, s.path, func(lineNo int, line []byte) (bool, error) {
		var rec rulingRecord
		if err := decodeLine(s.path, lineNo, line, &rec); err != nil {
			return false, err
		}
		text := rec.Citation
		if text == "" {
			text = fmt.Sprintf("BGE %d %s %d", rec.Volume, rec.Part, rec.Page)
		}
		k, err := citation.ParseKey(text)
		if err != nil || k.Type != citation.TypeRuling {
			return false, citation.ErrInvalidKey.WithDetail(fmt.Sprintf("%s:%d: %q", s.path, lineNo, text))
		}
		keys = append(keys, k)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
