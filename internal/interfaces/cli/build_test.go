package cli

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LexCite/internal/domain/citation"
	"github.com/turtacn/LexCite/internal/infrastructure/storage/local"
	"github.com/turtacn/LexCite/pkg/errors"
)

func TestBuildCmd_WritesDataset(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)

	out, err := env.run(t, "build", "-o", "json")
	require.NoError(t, err)

	var summary BuildSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.DocumentsIn)
	assert.Equal(t, 2, summary.DocumentsRetained)
	assert.Equal(t, 2, summary.Queries)
	assert.Equal(t, []string{"local"}, summary.Sinks)
	require.Len(t, summary.Types, 2)
	assert.Equal(t, "laws", summary.Types[0].Type)
	assert.Equal(t, 2, summary.Types[0].VocabularySize)
	assert.Equal(t, 1, summary.Types[1].ExcludedDocuments)

	for _, name := range []string{
		local.QueriesFile,
		local.DiagnosticsFile,
		local.VocabularyFile(citation.TypeLaw),
		local.CitationsFile(citation.TypeRuling),
	} {
		_, err := os.Stat(filepath.Join(env.out, name))
		assert.NoError(t, err, name)
	}

	vocab, err := os.ReadFile(filepath.Join(env.out, local.VocabularyFile(citation.TypeLaw)))
	require.NoError(t, err)
	assert.Equal(t, "SR 220 Art. 7a\nSR 220 Art. 12\n", string(vocab))
}

func TestBuildCmd_QueriesNestFieldsAndKeepMaskTokens(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)

	_, err := env.run(t, "build")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(env.out, local.QueriesFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "d1", first["decision_id"])
	fields, ok := first["fields"].(map[string]interface{})
	require.True(t, ok, "text sections are nested under fields")
	assert.Contains(t, fields["facts"], "<ref-law>")
	assert.Contains(t, lines[0], "<ref-law>")
	assert.NotContains(t, lines[0], `\u003c`)
}

func TestBuildCmd_MetricsAddr(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)

	out, err := env.run(t, "build", "--dry-run", "--metrics-addr", "127.0.0.1:0", "-o", "json")
	require.NoError(t, err)

	var summary BuildSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.True(t, strings.HasPrefix(summary.MetricsAddr, "127.0.0.1:"), summary.MetricsAddr)

	_, err = http.Get("http://" + summary.MetricsAddr + "/metrics")
	assert.Error(t, err, "the endpoint lives only as long as the build")
}

func TestBuildCmd_InvalidMetricsAddr(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)

	_, err := env.run(t, "build", "--dry-run", "--metrics-addr", "9090")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.listen_addr")
}

func TestBuildCmd_DryRunSkipsExport(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)

	out, err := env.run(t, "build", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "(dry run)")

	_, err = os.Stat(env.out)
	assert.True(t, os.IsNotExist(err))
}

func TestBuildCmd_OutDirFlag(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)
	dir := filepath.Join(t.TempDir(), "elsewhere")

	_, err := env.run(t, "build", "--out-dir", dir, "--workers", "1", "--ruling-cap", "1")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, local.QueriesFile))
	assert.NoError(t, err)
}

func TestBuildCmd_TableOutput(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)

	out, err := env.run(t, "build", "--dry-run", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "rulings")
}

func TestBuildCmd_InvalidFlags(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)

	_, err := env.run(t, "build", "--workers", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.workers")

	_, err = env.run(t, "build", "--source", "s3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input.source")
}

func TestBuildCmd_AmbiguousTableRefusesToStart(t *testing.T) {
	env := newTestEnv(t, testAmbiguousAbbreviations)

	_, err := env.run(t, "build")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAmbiguousAbbreviation))

	_, statErr := os.Stat(env.out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildCmd_MissingInput(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)
	require.NoError(t, os.Remove(filepath.Join(env.dir, "decisions.jsonl")))

	_, err := env.run(t, "build")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetLoadFailed))
}
