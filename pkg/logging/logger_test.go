package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, LevelInfo, cfg.Level)
	assert.False(t, cfg.Pretty)
	assert.NotNil(t, cfg.Output)
	assert.Empty(t, cfg.Service)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestSetup_Fields(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf, Service: "dinkelberg"})

	logger := NewLogger("cache")
	logger.Info().Str("key", "ddg.Answer.golang").Msg("Cache pool created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dinkelberg", line["service"])
	assert.Equal(t, "cache", line["component"])
	assert.Equal(t, "ddg.Answer.golang", line["key"])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "time")
}

func TestSetup_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	logger := NewLogger("ddg")
	logger.Debug().Msg("Fetching token")
	logger.Info().Msg("Image search")
	logger.Warn().Msg("Retrying request")
	logger.Error().Msg("Request failed")

	out := buf.String()
	assert.NotContains(t, out, "Fetching token")
	assert.NotContains(t, out, "Image search")
	assert.Contains(t, out, "Retrying request")
	assert.Contains(t, out, "Request failed")
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger.Info().Msg("Server starting")

	out := buf.String()
	assert.False(t, strings.HasPrefix(out, "{"), "expected console output, got %q", out)
	assert.Contains(t, out, "Server starting")
}

func TestSetup_ContextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf, Service: "bot"})

	// Loggers pulled from a bare context fall back to the configured one.
	zerolog.Ctx(t.Context()).Info().Msg("from context")

	assert.Contains(t, buf.String(), `"service":"bot"`)
	assert.Contains(t, buf.String(), "from context")
}
