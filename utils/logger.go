// ABOUTME: Structured logger construction and sensitive header redaction
// ABOUTME: Every component logs through log/slog; bearer credentials never reach a log line

package utils

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// RedactedValue replaces the value of sensitive headers in logs.
const RedactedValue = "[REDACTED]"

var sensitiveHeaders = []string{
	"Authorization",
	"Proxy-Authorization",
	"Cookie",
	"Set-Cookie",
}

// ParseLevel maps a LOG_LEVEL string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a JSON logger, or a text logger when format is "text".
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// RedactHeaders returns a copy of h with credential-bearing values replaced.
func RedactHeaders(h http.Header) http.Header {
	redacted := h.Clone()
	if redacted == nil {
		return http.Header{}
	}
	for _, name := range sensitiveHeaders {
		if _, ok := redacted[http.CanonicalHeaderKey(name)]; ok {
			redacted.Set(name, RedactedValue)
		}
	}
	return redacted
}

// TokenPrefix returns at most the first 8 characters of a secret for correlation in logs.
func TokenPrefix(token string) string {
	if token == "" {
		return "none"
	}
	return token[:min(8, len(token))] + "..."
}
