package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_json(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	logger.Info().Str("symbol", "NVDA").Msg("lookup")
	logger.Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "lookup", line["message"])
	assert.Equal(t, "NVDA", line["symbol"])
	assert.Equal(t, "info", line["level"])
}

func TestNew_console(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "text", &buf)

	logger.Debug().Str("symbol", "AAPL").Msg("cache hit")

	assert.Contains(t, buf.String(), "cache hit")
	assert.Contains(t, buf.String(), "AAPL")
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("warn"))
	assert.True(t, ValidLevel("DEBUG"))
	assert.False(t, ValidLevel("verbose"))
	assert.False(t, ValidLevel(""))
}
