package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestNewJSONComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(Options{Level: "info", Format: FormatJSON, Out: &buf}), "server")

	logger.Debug().Msg("hidden")
	logger.Info().Str("path", "/healthz").Msg("request")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "avcoach", entry["app"])
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, "/healthz", entry["path"])
	assert.Equal(t, "request", entry["message"])
}
