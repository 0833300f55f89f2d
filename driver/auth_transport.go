// ABOUTME: http.RoundTripper that attaches the bearer credential to every notes API call
// ABOUTME: A 401 on an authenticated request triggers one forced refresh and exactly one retry

package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"note-sync/models"
	"note-sync/utils"
)

// CredentialSource supplies bearer tokens; forceRefresh bypasses any cached token.
type CredentialSource interface {
	CurrentToken(ctx context.Context, forceRefresh bool) models.Credential
}

// AuthTransport injects credentials and recovers from a single authentication failure.
type AuthTransport struct {
	base        http.RoundTripper
	credentials CredentialSource
	logger      *slog.Logger
}

// NewAuthTransport wraps base; a nil base uses http.DefaultTransport.
func NewAuthTransport(base http.RoundTripper, credentials CredentialSource, logger *slog.Logger) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthTransport{
		base:        base,
		credentials: credentials,
		logger:      logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	first := req.Clone(ctx)
	credential := t.credentials.CurrentToken(ctx, false)
	if credential.HasToken() {
		setBearer(first, credential.Token)
	} else {
		first.Header.Del("Authorization")
		t.logger.Debug("Sending unauthenticated request",
			"credential_status", credential.Status.String(),
			"path", req.URL.Path)
	}

	resp, err := t.base.RoundTrip(first)
	if err != nil {
		return nil, err
	}

	// requests that carried no credential are never retried
	if resp.StatusCode != http.StatusUnauthorized || first.Header.Get("Authorization") == "" {
		return resp, nil
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		t.logger.Warn("Cannot replay request body after 401",
			"method", req.Method,
			"path", req.URL.Path)
		utils.RecordAuthRetry("not_replayable")
		return resp, nil
	}

	refreshed := t.credentials.CurrentToken(ctx, true)
	if !refreshed.HasToken() {
		discard(resp)
		utils.RecordAuthRetry("no_credential")
		t.logger.Warn("Credential refresh after 401 yielded no token",
			"credential_status", refreshed.Status.String(),
			"path", req.URL.Path)
		if refreshed.Err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCredentialUnavailable, refreshed.Status, refreshed.Err)
		}
		return nil, fmt.Errorf("%w: %s", ErrCredentialUnavailable, refreshed.Status)
	}

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			discard(resp)
			return nil, fmt.Errorf("failed to replay request body: %w", err)
		}
		retry.Body = body
	}
	setBearer(retry, refreshed.Token)
	discard(resp)

	t.logger.Info("Retrying request with refreshed credential",
		"method", req.Method,
		"path", req.URL.Path)

	resp, err = t.base.RoundTrip(retry)
	if err != nil {
		utils.RecordAuthRetry("error")
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		utils.RecordAuthRetry("unauthorized")
	} else {
		utils.RecordAuthRetry("recovered")
	}
	return resp, nil
}

func setBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// discard drains a response that will not be returned so its connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
