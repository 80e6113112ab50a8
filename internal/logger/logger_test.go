package logger

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
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestWithComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", false)
	t.Cleanup(func() { InitWriter(&bytes.Buffer{}, "info", false) })

	WithComponent("tracker").Info().Msg("started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tracker", entry["component"])
	assert.Equal(t, "started", entry["message"])
}

func TestSetTracingTogglesDebug(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "warn", false)
	t.Cleanup(func() { InitWriter(&bytes.Buffer{}, "info", false) })

	Debug("hidden")
	assert.Empty(t, buf.String())

	SetTracing(true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	Debug("visible")
	assert.Contains(t, buf.String(), "visible")

	SetTracing(false)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
