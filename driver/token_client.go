// ABOUTME: Refresh-token grant client for the secure token endpoint
// ABOUTME: Maps endpoint failures onto sentinel errors the credential provider can classify

package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"note-sync/models"
	"note-sync/utils"
)

// TokenRefresher exchanges a refresh token for a fresh ID token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.TokenRefreshResponse, error)
}

// tokenResponse accepts both id_token and access_token spellings and a string or numeric expires_in.
type tokenResponse struct {
	IDToken      string      `json:"id_token"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    flexibleInt `json:"expires_in"`
}

type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if text == "" || text == "null" {
		*f = 0
		return nil
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("invalid expires_in %q: %w", text, err)
	}
	*f = flexibleInt(value)
	return nil
}

type tokenErrorResponse struct {
	Error            any    `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// code returns the OAuth2 error string, which the token endpoint sends either
// flat ("invalid_grant") or nested ({"message": "INVALID_REFRESH_TOKEN"}).
func (r tokenErrorResponse) code() string {
	switch v := r.Error.(type) {
	case string:
		return v
	case map[string]any:
		if message, ok := v["message"].(string); ok {
			return message
		}
	}
	return ""
}

// TokenClient performs refresh-token grants.
type TokenClient struct {
	tokenURL   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTokenClient creates a token client for tokenURL. apiKey is sent as the key query parameter when set.
func NewTokenClient(tokenURL, apiKey string, timeout time.Duration, logger *slog.Logger) *TokenClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenClient{
		tokenURL: tokenURL,
		apiKey:   apiKey,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   2,
			},
		},
	}
}

// SetHTTPClient allows injecting a custom HTTP client
func (c *TokenClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Refresh exchanges refreshToken for a new ID token.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenRefreshResponse, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	endpoint := c.tokenURL
	if c.apiKey != "" {
		u, err := url.Parse(c.tokenURL)
		if err != nil {
			return nil, fmt.Errorf("invalid token URL: %w", err)
		}
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "note-sync/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		utils.RecordCredentialRefresh("network_error")
		return nil, fmt.Errorf("failed to execute refresh token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var tokenErr tokenErrorResponse
		_ = json.Unmarshal(body, &tokenErr)
		code := tokenErr.code()

		c.logger.Error("Token refresh failed",
			"status_code", resp.StatusCode,
			"oauth2_error", code)

		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %s", ErrInvalidRefreshToken, code)
		case http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", ErrTokenRevoked, code)
		case http.StatusTooManyRequests:
			retryAfter := resp.Header.Get("Retry-After")
			c.logger.Warn("Token endpoint rate limited", "retry_after", retryAfter)
			return nil, fmt.Errorf("%w: retry after %s", ErrRateLimited, retryAfter)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, fmt.Errorf("%w: HTTP %d", ErrTemporaryFailure, resp.StatusCode)
		default:
			return nil, fmt.Errorf("token refresh failed with status %d", resp.StatusCode)
		}
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	idToken := decoded.IDToken
	if idToken == "" {
		idToken = decoded.AccessToken
	}
	if idToken == "" {
		return nil, fmt.Errorf("token response carried no id_token")
	}

	c.logger.Info("Token refresh successful",
		"id_token_length", len(idToken),
		"expires_in_seconds", int(decoded.ExpiresIn),
		"has_new_refresh_token", decoded.RefreshToken != "",
		"new_refresh_token_prefix", utils.TokenPrefix(decoded.RefreshToken))

	return &models.TokenRefreshResponse{
		IDToken:      idToken,
		RefreshToken: decoded.RefreshToken,
		ExpiresIn:    int(decoded.ExpiresIn),
	}, nil
}
