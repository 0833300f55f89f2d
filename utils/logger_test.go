package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, expected := range tests {
		assert.Equal(t, expected, ParseLevel(input), "level %q", input)
	}
}

func TestNewLogger_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "feed", "main")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "main", entry["feed"])
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret-token")
	h.Set("Cookie", "session=abc")
	h.Set("Accept", "application/json")

	redacted := RedactHeaders(h)

	assert.Equal(t, RedactedValue, redacted.Get("Authorization"))
	assert.Equal(t, RedactedValue, redacted.Get("Cookie"))
	assert.Equal(t, "application/json", redacted.Get("Accept"))
	assert.Equal(t, "Bearer secret-token", h.Get("Authorization"), "original headers must not change")
}

func TestRedactHeaders_Nil(t *testing.T) {
	assert.NotNil(t, RedactHeaders(nil))
}

func TestTokenPrefix(t *testing.T) {
	assert.Equal(t, "none", TokenPrefix(""))
	assert.Equal(t, "abc...", TokenPrefix("abc"))
	assert.Equal(t, "abcdefgh...", TokenPrefix("abcdefghijklmnop"))
}
