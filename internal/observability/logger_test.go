package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

func TestDefaultLoggingConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.False(t, cfg.AddSource)
}

func TestNewLogger(t *testing.T) {
	t.Run("creates logger with default config", func(t *testing.T) {
		logger := NewLogger(DefaultLoggingConfig())
		assert.NotEqual(t, zerolog.Logger{}, logger)
	})

	t.Run("creates logger with console format", func(t *testing.T) {
		logger := NewLogger(LoggingConfig{Level: "debug", Format: "console", Output: "stderr"})
		assert.NotEqual(t, zerolog.Logger{}, logger)
	})

	t.Run("writes to a file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ingest.log")
		logger := NewLogger(LoggingConfig{Level: "info", Format: "json", Output: path})

		logger.Info().Msg("to file")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithRunContext(t *testing.T) {
	var buf bytes.Buffer
	enriched := WithRunContext(zerolog.New(&buf), "run-1", "pubmed")
	enriched.Info().Msg("run started")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "pubmed", entry["source"])
	assert.Equal(t, "run started", entry["message"])
}

func TestWithStageContext(t *testing.T) {
	t.Run("includes stream when set", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithStageContext(zerolog.New(&buf), "retrieve", "pmc")
		logger.Info().Msg("page")

		entry := decodeEntry(t, &buf)
		assert.Equal(t, "retrieve", entry["stage"])
		assert.Equal(t, "pmc", entry["stream"])
	})

	t.Run("omits empty stream", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithStageContext(zerolog.New(&buf), "dedup", "")
		logger.Info().Msg("done")

		entry := decodeEntry(t, &buf)
		_, ok := entry["stream"]
		assert.False(t, ok)
	})
}

func TestWithCandidateContext(t *testing.T) {
	var buf bytes.Buffer
	ids := domain.CandidateIDs{SecondaryID: "PMC123456", DOI: "10.1/x"}
	logger := WithCandidateContext(zerolog.New(&buf), ids)
	logger.Warn().Msg("fallback")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "PMC123456", entry["pmcid"])
	assert.Equal(t, "10.1/x", entry["doi"])
	_, ok := entry["pmid"]
	assert.False(t, ok)
}

func TestWithProviderContext(t *testing.T) {
	var buf bytes.Buffer
	logger := WithProviderContext(zerolog.New(&buf), "openalex", "works")
	logger.Info().Msg("request")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "openalex", entry["provider"])
	assert.Equal(t, "works", entry["endpoint"])
}
