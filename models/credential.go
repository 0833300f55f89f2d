// ABOUTME: This file defines credential models for bearer authentication
// ABOUTME: Credential lookups return explicit outcomes instead of signalling through errors

package models

import (
	"time"
)

// CredentialStatus is the outcome of a credential lookup.
type CredentialStatus int

const (
	// CredentialOK means Token holds a usable bearer token.
	CredentialOK CredentialStatus = iota
	// CredentialAuthRequired means no signed-in user or the refresh grant was rejected.
	CredentialAuthRequired
	// CredentialTransientFailure means the token endpoint could not be reached; Err holds the cause.
	CredentialTransientFailure
)

func (s CredentialStatus) String() string {
	switch s {
	case CredentialOK:
		return "ok"
	case CredentialAuthRequired:
		return "auth_required"
	case CredentialTransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// Credential is the result of asking a credential provider for a token.
type Credential struct {
	Token  string
	Status CredentialStatus
	Err    error
}

// HasToken reports whether the credential can be attached to a request.
func (c Credential) HasToken() bool {
	return c.Status == CredentialOK && c.Token != ""
}

// CredentialOf wraps a token as a successful credential.
func CredentialOf(token string) Credential {
	if token == "" {
		return Credential{Status: CredentialAuthRequired}
	}
	return Credential{Token: token, Status: CredentialOK}
}

// AuthToken is a cached bearer token with its refresh material.
type AuthToken struct {
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	IssuedAt     time.Time `json:"issued_at"`
}

// TokenRefreshResponse is the decoded response of a refresh-token grant.
type TokenRefreshResponse struct {
	IDToken      string
	RefreshToken string
	ExpiresIn    int
}

// NewAuthToken builds a token from a refresh response, keeping the existing
// refresh token when the response does not rotate it.
func NewAuthToken(response TokenRefreshResponse, existingRefreshToken string) *AuthToken {
	now := time.Now()
	refreshToken := response.RefreshToken
	if refreshToken == "" {
		refreshToken = existingRefreshToken
	}

	token := &AuthToken{
		IDToken:      response.IDToken,
		RefreshToken: refreshToken,
		IssuedAt:     now,
	}
	if response.ExpiresIn > 0 {
		token.ExpiresAt = now.Add(time.Duration(response.ExpiresIn) * time.Second)
	}
	return token
}

// NeedsRefresh checks if the token expires within buffer. A zero ExpiresAt means unknown expiry.
func (t *AuthToken) NeedsRefresh(buffer time.Duration) bool {
	if t.IDToken == "" {
		return true
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(buffer).After(t.ExpiresAt)
}
