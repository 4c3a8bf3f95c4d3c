package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LexCite/pkg/errors"
)

func TestAbbreviationsCheck_Clean(t *testing.T) {
	env := newTestEnv(t, testAbbreviations)

	out, err := env.run(t, "abbreviations", "check")
	require.NoError(t, err)
	assert.Equal(t, "3 abbreviation rows, no ambiguities", out)
}

func TestAbbreviationsCheck_Ambiguous(t *testing.T) {
	env := newTestEnv(t, testAmbiguousAbbreviations)

	out, err := env.run(t, "abbreviations", "check", "-o", "json")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAmbiguousAbbreviation))

	var report AmbiguityReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Ambiguities, 1)
	assert.Equal(t, "de", report.Ambiguities[0].Language)
	assert.Equal(t, "OR", report.Ambiguities[0].Abbreviation)
	assert.Equal(t, []string{"220", "221"}, report.Ambiguities[0].SRNumbers)
}
