package reasoning

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLAuditLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm-audit.jsonl")
	logger, err := NewJSONLAuditLogger(path, nil)
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.LogReasoning(ProviderGemini, "analyze", true, 150*time.Millisecond, nil, 100, 50))
	require.NoError(t, logger.LogReasoning(ProviderClaude, "analyze", false, 50*time.Millisecond, assertError{}, 10, 0))

	logs, err := logger.GetLogs(10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, ProviderGemini, logs[0].Provider)
	assert.True(t, logs[0].Success)
	assert.False(t, logs[1].Success)
	assert.Equal(t, "assertion failed", logs[1].Error)
}

func TestJSONLAuditLoggerGetLogsRespectsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm-audit.jsonl")
	logger, err := NewJSONLAuditLogger(path, nil)
	require.NoError(t, err)
	defer logger.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, logger.LogReasoning(ProviderGemini, "analyze", true, time.Millisecond, nil, 0, 0))
	}

	logs, err := logger.GetLogs(2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestJSONLAuditLoggerExportToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm-audit.jsonl")
	logger, err := NewJSONLAuditLogger(path, nil)
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.LogReasoning(ProviderGemini, "analyze", true, time.Millisecond, nil, 0, 0))

	var buf bytes.Buffer
	require.NoError(t, logger.ExportToJSON(&buf))
	assert.Contains(t, buf.String(), `"provider": "gemini"`)
}

func TestNullAuditLoggerIsNoOp(t *testing.T) {
	logger := NewNullAuditLogger()
	require.NoError(t, logger.LogReasoning(ProviderGemini, "analyze", true, time.Millisecond, nil, 0, 0))
	logs, err := logger.GetLogs(10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

type assertError struct{}

func (assertError) Error() string { return "assertion failed" }
