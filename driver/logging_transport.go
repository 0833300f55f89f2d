// ABOUTME: http.RoundTripper that tags each outbound request with an X-Request-ID and logs it
// ABOUTME: Only redacted headers are ever written to the log

package driver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"note-sync/utils"
)

// RequestIDHeader correlates client logs with server traces.
const RequestIDHeader = "X-Request-ID"

// LoggingTransport logs every request and response at debug level.
type LoggingTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

// NewLoggingTransport wraps base; a nil base uses http.DefaultTransport.
func NewLoggingTransport(base http.RoundTripper, logger *slog.Logger) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingTransport{base: base, logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	requestID := req.Header.Get(RequestIDHeader)

	t.logger.Debug("Outbound request",
		"request_id", requestID,
		"method", req.Method,
		"path", req.URL.Path,
		"headers", utils.RedactHeaders(req.Header))

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("Outbound request failed",
			"request_id", requestID,
			"method", req.Method,
			"path", req.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, err
	}

	t.logger.Debug("Inbound response",
		"request_id", requestID,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"headers", utils.RedactHeaders(resp.Header))

	return resp, nil
}
