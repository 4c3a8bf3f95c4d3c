// Package local reads LexCite inputs from JSON Lines files and writes the
// labeled dataset to a local directory.
package local

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/turtacn/LexCite/internal/application/labeling"
	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/pkg/errors"
)

// Dataset file names.
const (
	QueriesFile     = "queries.jsonl"
	DiagnosticsFile = "diagnostics.json"
)

// VocabularyFile returns "<type>_vocabulary.txt".
func VocabularyFile(t citation.Type) string { return string(t) + "_vocabulary.txt" }

// CitationsFile returns "<type>_citations.csv".
func CitationsFile(t citation.Type) string { return string(t) + "_citations.csv" }

// Artifact is one rendered dataset file.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Render serializes a run result into its dataset files. The order is
// stable: queries, then vocabulary and frequency table per type, then
// diagnostics.
func Render(res *labeling.Result) ([]Artifact, error) {
	if res == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "nil result")
	}

	out := make([]Artifact, 0, 2+2*len(citation.Types()))

	queries, err := renderQueries(res.Queries)
	if err != nil {
		return nil, err
	}
	out = append(out, Artifact{Name: QueriesFile, ContentType: "application/x-ndjson", Data: queries})

	for _, t := range citation.Types() {
		out = append(out, Artifact{
			Name:        VocabularyFile(t),
			ContentType: "text/plain; charset=utf-8",
			Data:        renderVocabulary(res.Vocabularies[t]),
		})
		table, err := renderFrequencies(res.Diagnostics, t)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Name: CitationsFile(t), ContentType: "text/csv", Data: table})
	}

	diag, err := json.MarshalIndent(res.Diagnostics, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode diagnostics")
	}
	out = append(out, Artifact{Name: DiagnosticsFile, ContentType: "application/json", Data: append(diag, '\n')})

	return out, nil
}

func renderQueries(queries []*labeling.Query) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, q := range queries {
		if err := enc.Encode(q); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeSerialization, "failed to encode query %s", q.DecisionID)
		}
	}
	return buf.Bytes(), nil
}

// renderVocabulary writes one canonical key per line in column order.
func renderVocabulary(v *labeling.Vocabulary) []byte {
	var buf bytes.Buffer
	if v == nil {
		return buf.Bytes()
	}
	for i := 0; i < v.Len(); i++ {
		buf.WriteString(v.Key(i).String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func renderFrequencies(d *labeling.Diagnostics, t citation.Type) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"citation", "frequency"})
	if d != nil {
		for _, kf := range d.Frequencies(t) {
			_ = w.Write([]string{kf.Key.String(), strconv.Itoa(kf.Frequency)})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode citation table")
	}
	return buf.Bytes(), nil
}
