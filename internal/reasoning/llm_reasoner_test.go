package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFirstJSONObjectPlain(t *testing.T) {
	out, err := extractFirstJSONObject(`{"a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, out)
}

func TestExtractFirstJSONObjectWithSurroundingProse(t *testing.T) {
	out, err := extractFirstJSONObject("Here is the analysis:\n```json\n{\"a\": 1}\n```\nLet me know if you need more.")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, out)
}

func TestExtractFirstJSONObjectIgnoresBracesInStrings(t *testing.T) {
	out, err := extractFirstJSONObject(`{"explanation": "uses a { character"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"explanation": "uses a { character"}`, out)
}

func TestExtractFirstJSONObjectNoObject(t *testing.T) {
	_, err := extractFirstJSONObject("no json here")
	assert.Error(t, err)
}

func TestParseAnalysisRoundTrip(t *testing.T) {
	text := `{"categories":[{"category":"visual","severity":"high","confidence":0.9,"pass":false,"explanation":"diff"}],"severity":"high","confidence":0.9,"pass":false,"explanation":"overall"}`
	analysis, err := parseAnalysis(text)
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, analysis.Severity)
	assert.False(t, analysis.Pass)
	require.Len(t, analysis.Categories, 1)
	assert.Equal(t, "visual", analysis.Categories[0].Category)
}
