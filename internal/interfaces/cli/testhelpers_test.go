package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testAbbreviations = `{"canton":"ch","language":"de","abbreviation":"OR","sr_number":"220"}
{"canton":"ch","language":"fr","abbreviation":"CO","sr_number":"220"}
{"canton":"ch","language":"de","abbreviation":"ZGB","sr_number":"210"}
{"canton":"zh","language":"de","abbreviation":"StPO","sr_number":"999"}
`
	testAmbiguousAbbreviations = `{"canton":"ch","language":"de","abbreviation":"OR","sr_number":"220"}
{"canton":"ch","language":"de","abbreviation":"OR","sr_number":"221"}
`
	testDecisions = `{"decision_id":"d1","language":"de","facts":"Gemäss Art. 7a Abs. 2 OR","considerations":"vgl. BGE 121 III 38","citations":{"laws":[{"text":"Art. 7a Abs. 2 OR"}],"rulings":[{"text":"BGE 121 III 38"}]}}
{"decision_id":"d2","language":"de","facts":"Art. 12 OR","considerations":"BGE 121 III 38","citations":{"laws":[{"text":"Art. 12 OR"},{"text":"Art. 7a OR"}],"rulings":[{"text":"BGE 121 III 38"}]}}
{"decision_id":"d3","language":"de","facts":"keine","citations":{"laws":[{"text":"Art. 1 ZGB"}]}}
`
)

type testEnv struct {
	dir    string
	config string
	out    string
}

// newTestEnv writes a file-source configuration into a temp directory.
func newTestEnv(t *testing.T, abbreviations string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	decisions := filepath.Join(dir, "decisions.jsonl")
	lexfind := filepath.Join(dir, "lexfind.jsonl")
	out := filepath.Join(dir, "dataset")
	require.NoError(t, os.WriteFile(decisions, []byte(testDecisions), 0o644))
	require.NoError(t, os.WriteFile(lexfind, []byte(abbreviations), 0o644))

	cfg := fmt.Sprintf(`input:
  source: file
  decisions_path: %q
  abbreviations_path: %q
output:
  dir: %q
pipeline:
  workers: 2
log:
  level: error
  format: console
`, decisions, lexfind, out)
	path := filepath.Join(dir, "lexcite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &testEnv{dir: dir, config: path, out: out}
}

// run executes the root command and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return strings.TrimSpace(stdout.String()), err
}
